package prescription

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"io"

	"github.com/google/uuid"

	"github.com/clinicrx/clinic/internal/domain/identity"
	"github.com/clinicrx/clinic/internal/platform/apperr"
)

//go:embed templates/print.html
var templateFS embed.FS

var printTemplate = template.Must(template.New("print.html").
	Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
	ParseFS(templateFS, "templates/print.html"))

// PrintView is everything the printable page shows.
type PrintView struct {
	Prescription *Prescription
	Patient      *identity.Patient
	Doctor       *identity.Doctor
	Vitals       []Reading
	History      []string
	Advice       []string
	Items        []PrintItem
}

type PrintItem struct {
	Name         string
	Dosage       string
	Doses        DosePeriods
	Duration     string
	Instructions string
}

func (s *Service) printView(ctx context.Context, rx *Prescription) (*PrintView, error) {
	patient, err := s.patients.GetPatient(ctx, rx.PatientID)
	if err != nil {
		return nil, err
	}
	view := &PrintView{
		Prescription: rx,
		Patient:      patient,
		Vitals:       rx.Vitals.Filled(),
		History:      rx.History.Labels(),
		Advice:       rx.Instructions.Lines(),
	}
	if rx.DoctorID != nil {
		doc, err := s.doctors.GetDoctor(ctx, *rx.DoctorID)
		switch {
		case err == nil:
			view.Doctor = doc
		case !errors.Is(err, apperr.ErrNotFound):
			return nil, err
		}
	}
	for i := range rx.Medicines {
		li := &rx.Medicines[i]
		view.Items = append(view.Items, PrintItem{
			Name:         li.DisplayName(),
			Dosage:       li.Dosage,
			Doses:        li.DosePeriods,
			Duration:     li.DurationDisplay(),
			Instructions: li.InstructionDisplay(),
		})
	}
	return view, nil
}

// RenderPrint writes the printable HTML page of a prescription.
func (s *Service) RenderPrint(ctx context.Context, id uuid.UUID, w io.Writer) error {
	rx, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	view, err := s.printView(ctx, rx)
	if err != nil {
		return err
	}
	// render to a buffer so a template error never sends a half page
	var buf bytes.Buffer
	if err := printTemplate.Execute(&buf, view); err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}
