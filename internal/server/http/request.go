package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/helixir/paper-assistant-service/internal/domain"
	"github.com/helixir/paper-assistant-service/internal/service"
	"github.com/helixir/paper-assistant-service/internal/storage"
)

const sniffLen = 512

// paperRequest is the request body for creating or updating a paper. In
// multipart requests the list fields arrive as JSON-encoded form values.
type paperRequest struct {
	Title      string             `json:"title" validate:"required,max=500"`
	Abstract   string             `json:"abstract" validate:"max=20000"`
	Keywords   string             `json:"keywords" validate:"max=1000"`
	Authors    []authorRequest    `json:"authors" validate:"max=50,dive"`
	Sections   []sectionRequest   `json:"sections" validate:"max=20,dive"`
	References []referenceRequest `json:"references" validate:"max=500,dive"`
	GenerateAI bool               `json:"generate_ai"`
}

type authorRequest struct {
	Name            string `json:"name" validate:"required,max=200"`
	Department      string `json:"department" validate:"max=200"`
	University      string `json:"university" validate:"max=200"`
	City            string `json:"city" validate:"max=100"`
	Country         string `json:"country" validate:"max=100"`
	Email           string `json:"email" validate:"omitempty,email"`
	IsCorresponding bool   `json:"is_corresponding"`
}

// sectionRequest accepts the section kind as either "type" or "section_type".
type sectionRequest struct {
	Type        string `json:"type"`
	SectionType string `json:"section_type"`
	Content     string `json:"content" validate:"max=100000"`
}

type referenceRequest struct {
	Author      string `json:"author" validate:"max=500"`
	Title       string `json:"title" validate:"required,max=1000"`
	Publication string `json:"publication" validate:"max=500"`
	Year        int    `json:"year" validate:"gte=0,lte=9999"`
	URL         string `json:"url" validate:"omitempty,url"`
}

type captionRequest struct {
	Caption *string `json:"caption" validate:"required,max=2000"`
}

// parsedPaper is a decoded paper request plus its file parts. Close releases
// the file handles.
type parsedPaper struct {
	input   service.PaperInput
	uploads []service.Upload
	files   []multipart.File
	form    *multipart.Form
}

func (p *parsedPaper) Close() {
	for _, f := range p.files {
		_ = f.Close()
	}
	if p.form != nil {
		_ = p.form.RemoveAll()
	}
}

// decodePaperRequest reads a JSON or multipart paper request. Returned errors
// are domain errors suitable for writeDomainError.
func (s *Server) decodePaperRequest(w http.ResponseWriter, r *http.Request) (*parsedPaper, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var req paperRequest
	parsed := &parsedPaper{}

	if mediaType == "multipart/form-data" {
		limit := int64(s.cfg.MaxFiles)*s.cfg.MaxFileBytes + maxFormFieldsSize
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		if err := r.ParseMultipartForm(maxFormFieldsSize); err != nil {
			return nil, formError(err)
		}
		parsed.form = r.MultipartForm
		if err := decodeFormFields(r.MultipartForm, &req); err != nil {
			parsed.Close()
			return nil, err
		}
		if err := s.openUploads(r.MultipartForm.File["files"], parsed); err != nil {
			parsed.Close()
			return nil, err
		}
	} else {
		if err := decodeJSON(w, r, &req); err != nil {
			return nil, err
		}
	}

	input, err := s.toPaperInput(&req)
	if err != nil {
		parsed.Close()
		return nil, err
	}
	parsed.input = input
	return parsed, nil
}

func formError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: request body exceeds %d bytes", domain.ErrPayloadTooLarge, maxErr.Limit)
	}
	if errors.Is(err, io.EOF) {
		return domain.NewValidationError("body", "request body is required")
	}
	return domain.NewValidationError("body", "malformed request body")
}

func decodeFormFields(form *multipart.Form, req *paperRequest) error {
	req.Title = formValue(form, "title")
	req.Abstract = formValue(form, "abstract")
	req.Keywords = formValue(form, "keywords")

	flag := formValue(form, "generate_ai")
	if flag == "" {
		flag = formValue(form, "generateAI")
	}
	if flag != "" {
		on, err := strconv.ParseBool(flag)
		if err != nil {
			return domain.NewValidationError("generate_ai", "must be a boolean")
		}
		req.GenerateAI = on
	}

	lists := []struct {
		field string
		dst   interface{}
	}{
		{"authors", &req.Authors},
		{"sections", &req.Sections},
		{"references", &req.References},
	}
	for _, l := range lists {
		raw := formValue(form, l.field)
		if raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(raw), l.dst); err != nil {
			return domain.NewValidationError(l.field, "must be a JSON array")
		}
	}
	return nil
}

func formValue(form *multipart.Form, key string) string {
	if vs := form.Value[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// openUploads checks the file parts against the upload limits and opens them.
// The content type is sniffed from the leading bytes, not taken from the
// client's part header.
func (s *Server) openUploads(headers []*multipart.FileHeader, parsed *parsedPaper) error {
	if len(headers) > s.cfg.MaxFiles {
		return domain.NewValidationError("files", fmt.Sprintf("at most %d files are allowed", s.cfg.MaxFiles))
	}

	for _, fh := range headers {
		if fh.Size > s.cfg.MaxFileBytes {
			s.recordUploadRejected("too_large")
			return fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrPayloadTooLarge, fh.Filename, s.cfg.MaxFileBytes)
		}

		f, err := fh.Open()
		if err != nil {
			return fmt.Errorf("open upload %s: %w", fh.Filename, err)
		}
		parsed.files = append(parsed.files, f)

		head := make([]byte, sniffLen)
		n, err := io.ReadFull(f, head)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read upload %s: %w", fh.Filename, err)
		}
		contentType := storage.SniffContentType(head[:n])
		if !storage.IsAllowedType(contentType) {
			s.recordUploadRejected("unsupported_type")
			return fmt.Errorf("%w: %s", domain.ErrUnsupportedMedia, contentType)
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("rewind upload %s: %w", fh.Filename, err)
		}

		parsed.uploads = append(parsed.uploads, service.Upload{
			FileName:    fh.Filename,
			ContentType: contentType,
			Body:        f,
		})
	}
	return nil
}

func (s *Server) recordUploadRejected(reason string) {
	if s.metrics != nil {
		s.metrics.RecordUploadRejected(reason)
	}
}

func (s *Server) toPaperInput(req *paperRequest) (service.PaperInput, error) {
	if err := s.validate.Struct(req); err != nil {
		return service.PaperInput{}, validationError(err)
	}

	in := service.PaperInput{
		Title:      req.Title,
		Abstract:   req.Abstract,
		Keywords:   req.Keywords,
		GenerateAI: req.GenerateAI,
		Authors:    make([]domain.Author, len(req.Authors)),
		Sections:   make([]domain.Section, len(req.Sections)),
		References: make([]domain.Reference, len(req.References)),
	}
	for i, a := range req.Authors {
		in.Authors[i] = domain.Author{
			Name:            a.Name,
			Department:      a.Department,
			University:      a.University,
			City:            a.City,
			Country:         a.Country,
			Email:           a.Email,
			IsCorresponding: a.IsCorresponding,
		}
	}
	for i, sec := range req.Sections {
		raw := sec.SectionType
		if raw == "" {
			raw = sec.Type
		}
		st, err := domain.ParseSectionType(raw)
		if err != nil {
			return service.PaperInput{}, domain.NewValidationError(fmt.Sprintf("sections[%d].section_type", i), "unknown section type "+raw)
		}
		in.Sections[i] = domain.Section{Type: st, Content: sec.Content}
	}
	for i, ref := range req.References {
		in.References[i] = domain.Reference{
			Author:      ref.Author,
			Title:       ref.Title,
			Publication: ref.Publication,
			Year:        ref.Year,
			URL:         ref.URL,
		}
	}
	return in, nil
}

// validationError converts the first validator failure into a domain
// validation error with a JSON-style field path.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.NewValidationError("body", err.Error())
	}
	fe := verrs[0]
	field := jsonFieldPath(fe.Namespace())

	var msg string
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "max":
		msg = "must be at most " + fe.Param()
	case "email":
		msg = "must be a valid email address"
	case "url":
		msg = "must be a valid URL"
	default:
		msg = "failed " + fe.Tag() + " check"
	}
	return domain.NewValidationError(field, msg)
}

// jsonFieldPath strips the root struct name from a validator namespace. Field
// names are already JSON names via newValidator.
func jsonFieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

// newValidator returns a validator that reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
