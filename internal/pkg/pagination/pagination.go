package pagination

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Params represents pagination parameters
type Params struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"-"`
}

// DefaultLimit is the default number of items per page
const DefaultLimit = 10

// MaxLimit is the maximum number of items per page
const MaxLimit = 100

// New normalizes page and limit values
func New(page, limit int) Params {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// GetParams extracts pagination parameters from request
func GetParams(c *fiber.Ctx) Params {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(DefaultLimit)))
	return New(page, limit)
}

// TotalPages returns the number of pages needed for total items
func (p Params) TotalPages(total int64) int {
	if p.Limit < 1 {
		return 0
	}
	pages := int(total) / p.Limit
	if int(total)%p.Limit > 0 {
		pages++
	}
	return pages
}
