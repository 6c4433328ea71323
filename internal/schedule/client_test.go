package schedule

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchPageRequestShape(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"lista": [], "totalPaginas": 1}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/agenda", "user", "secret", "cid-123", time.Second)
	_, err := c.FetchPage(context.Background(), "2026-08-30", "2026-10-29", 2)
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/agenda/lista", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "2026-08-30", q.Get("dataInicial"))
	assert.Equal(t, "2026-10-29", q.Get("dataFinal"))
	assert.Equal(t, "2", q.Get("pagina"))
	assert.Equal(t, "cid-123", got.Header.Get("clinicaNasNuvens-cid"))

	user, pass, ok := got.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "user", user)
	assert.Equal(t, "secret", pass)
}

func TestFetchPageDecodesObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"totalPaginas": 3,
			"lista": [
				{
					"id": 42,
					"status": "CONFIRMADO",
					"data": "2026-09-01",
					"horaInicio": "14:30:00",
					"pacienteNome": "Maria da Silva",
					"telefoneCelularPaciente": "(11) 98888-7777",
					"nomeProfissional": "Dra. Clara",
					"idTipoConsulta": 7,
					"procedimentos": ["Limpeza de pele", {"nome": "Peeling"}]
				}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "u", "p", "cid", time.Second)
	page, err := c.FetchPage(context.Background(), "2026-08-30", "2026-10-29", 0)
	require.NoError(t, err)

	require.NotNil(t, page.TotalPages)
	assert.Equal(t, 3, *page.TotalPages)
	require.Len(t, page.Appointments, 1)

	appt := page.Appointments[0]
	assert.Equal(t, int64(42), appt.ID)
	assert.Equal(t, "2026-09-01", appt.Date())
	assert.Equal(t, "14:30:00", appt.StartTime())
	assert.Equal(t, "Maria da Silva", appt.PatientName())
	assert.Equal(t, "11988887777", appt.Phone())
	assert.Equal(t, "Dra. Clara", appt.Professional())
	require.NotNil(t, appt.ConsultationTypeID)
	assert.Equal(t, int64(7), *appt.ConsultationTypeID)
	assert.Equal(t, []string{"Limpeza de pele", "Peeling"}, appt.Procedures())
}

func TestFetchPageDecodesArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"lista": [{"id": 1, "status": "AGENDADO"}]},
			{"lista": [{"id": 2, "status": "CANCELADO"}], "totalPaginas": 2}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "u", "p", "cid", time.Second)
	page, err := c.FetchPage(context.Background(), "2026-08-30", "2026-08-30", 0)
	require.NoError(t, err)

	require.Len(t, page.Appointments, 2)
	assert.Equal(t, int64(1), page.Appointments[0].ID)
	assert.Equal(t, int64(2), page.Appointments[1].ID)
	require.NotNil(t, page.TotalPages)
	assert.Equal(t, 2, *page.TotalPages)
}

func TestFetchPageEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "u", "p", "cid", time.Second)
	page, err := c.FetchPage(context.Background(), "2026-08-30", "2026-08-30", 0)
	require.NoError(t, err)
	assert.Empty(t, page.Appointments)
	assert.Nil(t, page.TotalPages)
}

func TestFetchPageStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "u", "p", "cid", time.Second)
	_, err := c.FetchPage(context.Background(), "2026-08-30", "2026-08-30", 4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 4")
	assert.Contains(t, err.Error(), "500")
}

func TestAppointmentFieldFallbacks(t *testing.T) {
	appt := Appointment{
		RawDateAlt:         "2026-09-05",
		RawHourSnake:       "09:00",
		RawPatientAlt:      "José Santos",
		RawPhoneSnake:      "11 97777-0000",
		RawProfessionalAlt: "Dr. Pedro",
		RawProceduresObs:   []Procedure{{Name: "Ultrassom"}},
	}
	assert.Equal(t, "2026-09-05", appt.Date())
	assert.Equal(t, "09:00", appt.StartTime())
	assert.Equal(t, "José Santos", appt.PatientName())
	assert.Equal(t, "11977770000", appt.Phone())
	assert.Equal(t, "Dr. Pedro", appt.Professional())
	assert.Equal(t, []string{"Ultrassom"}, appt.Procedures())
}
