package api

import (
	"net/http/httptest"
	"testing"
)

func TestParsePage(t *testing.T) {
	cases := []struct {
		url         string
		wantPage    int
		wantPerPage int
	}{
		{"/x", 1, 20},
		{"/x?page=3", 3, 20},
		{"/x?page=3&per_page=50", 3, 50},
		{"/x?per_page=500", 1, 100},
		{"/x?page=0&per_page=0", 1, 20},
		{"/x?page=-2&per_page=abc", 1, 20},
	}
	for _, c := range cases {
		r := httptest.NewRequest("GET", c.url, nil)
		page, perPage := ParsePage(r)
		if page != c.wantPage || perPage != c.wantPerPage {
			t.Fatalf("url=%s got=(%d,%d) want=(%d,%d)", c.url, page, perPage, c.wantPage, c.wantPerPage)
		}
	}
}
