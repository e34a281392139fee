package httpserver

import (
	"time"

	"github.com/helixir/paper-assistant-service/internal/domain"
)

// Paper response types for JSON serialization.

type statusResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Env       string    `json:"env,omitempty"`
}

type paperMutationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	PaperID string `json:"paper_id"`
}

type paperResponse struct {
	ID         string              `json:"id"`
	Title      string              `json:"title"`
	Abstract   string              `json:"abstract"`
	Keywords   string              `json:"keywords"`
	Authors    []authorResponse    `json:"authors"`
	Sections   []sectionResponse   `json:"sections"`
	References []referenceResponse `json:"references"`
	Images     []imageResponse     `json:"images"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

type authorResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Department      string `json:"department,omitempty"`
	University      string `json:"university,omitempty"`
	City            string `json:"city,omitempty"`
	Country         string `json:"country,omitempty"`
	Email           string `json:"email,omitempty"`
	IsCorresponding bool   `json:"is_corresponding"`
}

type sectionResponse struct {
	ID       string `json:"id"`
	Type     string `json:"section_type"`
	Content  string `json:"content"`
	OrderNum int    `json:"order_num"`
}

type referenceResponse struct {
	ID          string `json:"id"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Publication string `json:"publication"`
	Year        int    `json:"year"`
	URL         string `json:"url,omitempty"`
}

type imageResponse struct {
	ID        string    `json:"id"`
	FilePath  string    `json:"file_path"`
	Caption   *string   `json:"caption"`
	CreatedAt time.Time `json:"created_at"`
}

type getPaperResponse struct {
	Success bool          `json:"success"`
	Data    paperResponse `json:"data"`
}

type paperSummaryResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Abstract  string    `json:"abstract"`
	Keywords  string    `json:"keywords"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type listPapersResponse struct {
	Success       bool                   `json:"success"`
	Count         int                    `json:"count"`
	Data          []paperSummaryResponse `json:"data"`
	NextPageToken string                 `json:"next_page_token,omitempty"`
	TotalCount    int                    `json:"total_count"`
}

type imageCaptionResponse struct {
	Success bool          `json:"success"`
	Data    imageResponse `json:"data"`
}

// Converter functions

func domainPaperToResponse(p *domain.Paper) paperResponse {
	resp := paperResponse{
		ID:         p.ID.String(),
		Title:      p.Title,
		Abstract:   p.Abstract,
		Keywords:   p.Keywords,
		Authors:    make([]authorResponse, len(p.Authors)),
		Sections:   make([]sectionResponse, len(p.Sections)),
		References: make([]referenceResponse, len(p.References)),
		Images:     make([]imageResponse, len(p.Images)),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
	for i, a := range p.Authors {
		resp.Authors[i] = authorResponse{
			ID:              a.ID.String(),
			Name:            a.Name,
			Department:      a.Department,
			University:      a.University,
			City:            a.City,
			Country:         a.Country,
			Email:           a.Email,
			IsCorresponding: a.IsCorresponding,
		}
	}
	for i, s := range p.Sections {
		resp.Sections[i] = sectionResponse{
			ID:       s.ID.String(),
			Type:     string(s.Type),
			Content:  s.Content,
			OrderNum: s.OrderNum,
		}
	}
	for i, r := range p.References {
		resp.References[i] = referenceResponse{
			ID:          r.ID.String(),
			Author:      r.Author,
			Title:       r.Title,
			Publication: r.Publication,
			Year:        r.Year,
			URL:         r.URL,
		}
	}
	for i, img := range p.Images {
		resp.Images[i] = domainImageToResponse(&img)
	}
	return resp
}

func domainImageToResponse(img *domain.Image) imageResponse {
	return imageResponse{
		ID:        img.ID.String(),
		FilePath:  img.FilePath,
		Caption:   img.Caption,
		CreatedAt: img.CreatedAt,
	}
}

func domainSummaryToResponse(s *domain.PaperSummary) paperSummaryResponse {
	return paperSummaryResponse{
		ID:        s.ID.String(),
		Title:     s.Title,
		Abstract:  s.Abstract,
		Keywords:  s.Keywords,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
