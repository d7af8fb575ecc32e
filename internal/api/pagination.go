package api

import (
	"net/http"
	"strconv"
)

const defaultPerPage = 20
const maxPerPage = 100

// ParsePage reads page and per_page from query params. Defaults are 1 and 20,
// per_page is capped at 100.
func ParsePage(r *http.Request) (page, perPage int) {
	page = 1
	perPage = defaultPerPage
	if s := r.URL.Query().Get("page"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			page = n
		}
	}
	if s := r.URL.Query().Get("per_page"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			perPage = n
			if perPage > maxPerPage {
				perPage = maxPerPage
			}
		}
	}
	return page, perPage
}
