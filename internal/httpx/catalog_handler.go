package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
)

// syncCoursesHandler подтягивает каталог курсов арендатора из его LMS.
func syncCoursesHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := deps.Catalog.SyncCourses(r.Context(), chi.URLParam(r, "tenantID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

type courseResponse struct {
	ID          string `json:"id"`
	LMSCourseID int64  `json:"lms_course_id"`
	FullName    string `json:"full_name"`
	Summary     string `json:"summary,omitempty"`
}

func listCoursesHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courses, err := deps.Catalog.ListCourses(chi.URLParam(r, "tenantID"))
		if err != nil {
			writeError(w, err)
			return
		}

		resp := make([]courseResponse, 0, len(courses))
		for _, c := range courses {
			resp = append(resp, courseResponse{
				ID:          c.ID,
				LMSCourseID: c.LMSCourseID,
				FullName:    c.FullName,
				Summary:     c.Summary,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// Цены принимаются строками, чтобы не терять точность на float64 в JSON.
type createProductRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	ImageURL      string `json:"image_url"`
	Currency      string `json:"currency"`
	Price         string `json:"price"`
	DiscountPrice string `json:"discount_price"`
	Published     bool   `json:"published"`
	InStock       bool   `json:"in_stock"`
}

type productResponse struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Currency      string `json:"currency"`
	Price         string `json:"price"`
	DiscountPrice string `json:"discount_price,omitempty"`
	PriceCents    int64  `json:"price_cents"`
	Published     bool   `json:"published"`
	InStock       bool   `json:"in_stock"`
}

func createProductHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createProductRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}

		price, err := decimal.NewFromString(req.Price)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must be a decimal string"})
			return
		}

		p := domain.Product{
			TenantID:    chi.URLParam(r, "tenantID"),
			Title:       req.Title,
			Description: req.Description,
			ImageURL:    req.ImageURL,
			Currency:    req.Currency,
			Price:       price,
			Published:   req.Published,
			InStock:     req.InStock,
		}
		if req.DiscountPrice != "" {
			discount, err := decimal.NewFromString(req.DiscountPrice)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "discount_price must be a decimal string"})
				return
			}
			p.DiscountPrice = &discount
		}

		created, err := deps.Catalog.CreateProduct(p)
		if err != nil {
			writeError(w, err)
			return
		}

		resp := productResponse{
			ID:         created.ID,
			Title:      created.Title,
			Currency:   created.Currency,
			Price:      created.Price.String(),
			PriceCents: created.PriceCents,
			Published:  created.Published,
			InStock:    created.InStock,
		}
		if created.DiscountPrice != nil {
			resp.DiscountPrice = created.DiscountPrice.String()
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func linkCourseHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.Catalog.LinkCourse(
			chi.URLParam(r, "tenantID"),
			chi.URLParam(r, "productID"),
			chi.URLParam(r, "courseID"),
		)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "linked"})
	}
}
