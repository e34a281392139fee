package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/helixir/paper-assistant-service/internal/domain"
	"github.com/helixir/paper-assistant-service/internal/observability"
)

// createPaper handles POST /api/papers.
func (s *Server) createPaper(w http.ResponseWriter, r *http.Request) {
	parsed, err := s.decodePaperRequest(w, r)
	if err != nil {
		s.handleError(w, r, err, "invalid create request")
		return
	}
	defer parsed.Close()

	paper, err := s.papers.Create(r.Context(), parsed.input, parsed.uploads)
	if err != nil {
		s.handleError(w, r, err, "failed to create paper")
		return
	}

	writeJSON(w, http.StatusCreated, paperMutationResponse{
		Success: true,
		Message: "Paper created successfully",
		PaperID: paper.ID.String(),
	})
}

// updatePaper handles PUT /api/papers/{paperID}.
// Authors, sections and references are replaced; uploads are appended.
func (s *Server) updatePaper(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "paperID"), "paper_id")
	if !ok {
		return
	}
	r = r.WithContext(observability.WithPaperID(r.Context(), id.String()))

	parsed, err := s.decodePaperRequest(w, r)
	if err != nil {
		s.handleError(w, r, err, "invalid update request")
		return
	}
	defer parsed.Close()

	if _, err := s.papers.Update(r.Context(), id, parsed.input, parsed.uploads); err != nil {
		s.handleError(w, r, err, "failed to update paper")
		return
	}

	writeJSON(w, http.StatusOK, paperMutationResponse{
		Success: true,
		Message: "Paper updated successfully",
		PaperID: id.String(),
	})
}

// listPapers handles GET /api/papers.
func (s *Server) listPapers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaginationParams(r)

	papers, totalCount, err := s.papers.List(r.Context(), limit, offset)
	if err != nil {
		s.handleError(w, r, err, "failed to list papers")
		return
	}

	data := make([]paperSummaryResponse, len(papers))
	for i, p := range papers {
		data[i] = domainSummaryToResponse(p)
	}

	writeJSON(w, http.StatusOK, listPapersResponse{
		Success:       true,
		Count:         len(data),
		Data:          data,
		NextPageToken: encodeHTTPPageToken(offset, limit, int(totalCount)),
		TotalCount:    int(totalCount),
	})
}

// getPaper handles GET /api/papers/{paperID}.
func (s *Server) getPaper(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "paperID"), "paper_id")
	if !ok {
		return
	}

	paper, err := s.papers.Get(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err, "failed to get paper")
		return
	}

	writeJSON(w, http.StatusOK, getPaperResponse{
		Success: true,
		Data:    domainPaperToResponse(paper),
	})
}

// updateImageCaption handles PATCH /api/papers/{paperID}/images/{imageID}.
func (s *Server) updateImageCaption(w http.ResponseWriter, r *http.Request) {
	paperID, ok := parseUUID(w, chi.URLParam(r, "paperID"), "paper_id")
	if !ok {
		return
	}
	imageID, ok := parseUUID(w, chi.URLParam(r, "imageID"), "image_id")
	if !ok {
		return
	}

	var req captionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.handleError(w, r, err, "invalid caption request")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.handleError(w, r, validationError(err), "invalid caption request")
		return
	}

	img, err := s.papers.UpdateImageCaption(r.Context(), paperID, imageID, *req.Caption)
	if err != nil {
		s.handleError(w, r, err, "failed to update caption")
		return
	}

	writeJSON(w, http.StatusOK, imageCaptionResponse{
		Success: true,
		Data:    domainImageToResponse(img),
	})
}

// previewPaper handles GET /api/papers/{paperID}/html.
func (s *Server) previewPaper(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "paperID"), "paper_id")
	if !ok {
		return
	}
	r = r.WithContext(observability.WithPaperID(r.Context(), id.String()))

	doc, err := s.papers.ComposeHTML(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err, "failed to compose paper")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc.HTML))
}

// downloadPDF handles GET /api/papers/{paperID}/pdf.
func (s *Server) downloadPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "paperID"), "paper_id")
	if !ok {
		return
	}
	r = r.WithContext(observability.WithPaperID(r.Context(), id.String()))

	pdf, err := s.papers.GeneratePDF(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err, "failed to generate pdf")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"paper-%s.pdf\"", id))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// handleError logs server-side failures and writes the mapped error response.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if !isClientError(err) {
		log := observability.LoggerFromContext(r.Context(), s.logger)
		log.Error().Err(err).Msg(msg)
	}
	writeDomainError(w, err)
}

func isClientError(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrUnsupportedMedia) ||
		errors.Is(err, domain.ErrPayloadTooLarge)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return formError(err)
	}
	return nil
}
