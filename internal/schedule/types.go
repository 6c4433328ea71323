// Package schedule reads appointment snapshots from the clinic scheduling API.
// The API is polled, paginated, and keeps no history: every cycle sees the
// current state of each appointment and nothing else.
package schedule

import (
	"encoding/json"
	"strings"
)

// Appointment is one poll's view of an appointment's mutable fields.
// The upstream API has shipped the same data under several field names over
// time, so the raw aliases are all captured and coalesced by the accessor
// methods. Callers should use the accessors, not the raw fields.
type Appointment struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`

	RawDate       string `json:"data"`
	RawDateAlt    string `json:"dataAgenda"`
	RawStartTime  string `json:"horaInicio"`
	RawHour       string `json:"hora"`
	RawHourSnake  string `json:"hora_inicio"`
	RawPatient    string `json:"paciente_nome"`
	RawPatientAlt string `json:"nomePaciente"`
	RawPatientCC  string `json:"pacienteNome"`

	RawPhone      string `json:"telefoneCelularPaciente"`
	RawPhoneAlt   string `json:"telefone"`
	RawPhoneSnake string `json:"telefone_celular_paciente"`

	RawProfessional      string `json:"nome_profissional"`
	RawProfessionalAlt   string `json:"profissional"`
	RawProfessionalCamel string `json:"nomeProfissional"`

	RawProcedures    []Procedure `json:"procedimentos"`
	RawProceduresObs []Procedure `json:"procedimentos_com_obs"`

	ConsultationTypeID *int64 `json:"idTipoConsulta"`
	ExecutorPersonID   int64  `json:"idPessoaExecutor"`

	RawAddress      string `json:"endereco_clinica"`
	RawAddressAlt   string `json:"endereco"`
	RawAddressCamel string `json:"enderecoClinica"`
}

// Procedure is a procedure descriptor that arrives either as a bare string
// or as an object carrying a name field.
type Procedure struct {
	Name string
}

func (p *Procedure) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		p.Name = s
		return nil
	}
	var obj struct {
		Name      string `json:"nome"`
		NameCamel string `json:"nomeProcedimento"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	p.Name = coalesce(obj.Name, obj.NameCamel)
	return nil
}

// Date returns the appointment date as YYYY-MM-DD.
func (a *Appointment) Date() string {
	return coalesce(a.RawDate, a.RawDateAlt)
}

// StartTime returns the appointment start time as HH:MM or HH:MM:SS.
func (a *Appointment) StartTime() string {
	return coalesce(a.RawStartTime, a.RawHour, a.RawHourSnake)
}

// PatientName returns the patient's full name.
func (a *Appointment) PatientName() string {
	return coalesce(a.RawPatient, a.RawPatientAlt, a.RawPatientCC)
}

// Phone returns the patient's phone with every non-digit stripped.
// Empty means the record has no usable destination.
func (a *Appointment) Phone() string {
	raw := coalesce(a.RawPhone, a.RawPhoneAlt, a.RawPhoneSnake)
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Professional returns the treating professional's display name.
func (a *Appointment) Professional() string {
	return coalesce(a.RawProfessional, a.RawProfessionalAlt, a.RawProfessionalCamel)
}

// Address returns the clinic address, when present.
func (a *Appointment) Address() string {
	return coalesce(a.RawAddress, a.RawAddressAlt, a.RawAddressCamel)
}

// Procedures returns the non-empty procedure names for this appointment.
func (a *Appointment) Procedures() []string {
	raw := a.RawProcedures
	if len(raw) == 0 {
		raw = a.RawProceduresObs
	}
	var names []string
	for _, p := range raw {
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	return names
}

// Page is one page of the paginated agenda listing. TotalPages is nil when
// the API does not report a page count; pagination then continues until an
// empty page.
type Page struct {
	Appointments []Appointment `json:"lista"`
	TotalPages   *int          `json:"totalPaginas"`
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
