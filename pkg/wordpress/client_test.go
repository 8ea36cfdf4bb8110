package wordpress

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestClient(t *testing.T, handler http.Handler) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "importer", "secret", WithRateLimit(1000))
}

func TestFetchExisting_IndexesBothStatuses(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "importer", user)
		assert.Equal(t, "secret", pass)

		var listings []Listing
		switch r.URL.Query().Get("status") {
		case "publish":
			listings = []Listing{
				{
					ID: 1, Slug: "sunny-acres", Status: "publish",
					Title: rendered{Rendered: "Sunny Acres"},
					Meta: Meta{
						SeniorPlaceURL: "https://app.seniorplace.com/c/101",
						Address:        "123 North Main Street",
					},
				},
			}
		case "draft":
			listings = []Listing{
				{
					ID: 2, Slug: "villa-feliz", Status: "draft",
					Title: rendered{Rendered: "Villa Feliz"},
					Meta:  Meta{Address: "500 E Thomas Rd"},
				},
			}
		}
		json.NewEncoder(w).Encode(listings)
	})

	idx, err := newTestClient(t, handler).FetchExisting(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())

	byURL := idx.Find("https://app.seniorplace.com/c/101", "")
	require.NotNil(t, byURL)
	assert.Equal(t, 1, byURL.ID)

	// Address lookup normalizes street abbreviations.
	byAddr := idx.Find("", "123 N Main St")
	require.NotNil(t, byAddr)
	assert.Equal(t, 1, byAddr.ID)

	assert.Nil(t, idx.Find("https://unknown", "1 Nowhere Ln"))
}

func TestFetchExisting_Paginates(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("status") == "draft" {
			json.NewEncoder(w).Encode([]Listing{})
			return
		}
		page := r.URL.Query().Get("page")
		if page == "1" {
			full := make([]Listing, perPage)
			for i := range full {
				full[i] = Listing{ID: i + 1, Status: "publish"}
			}
			json.NewEncoder(w).Encode(full)
			return
		}
		json.NewEncoder(w).Encode([]Listing{{ID: perPage + 1, Status: "publish"}})
	})

	idx, err := newTestClient(t, handler).FetchExisting(context.Background())
	require.NoError(t, err)
	assert.Equal(t, perPage+1, idx.Len())
}

func TestFetchExisting_ExactPageMultiple(t *testing.T) {
	// With exactly perPage listings, the request for page 2 comes back
	// as WP's invalid-page 400, which must read as end of pagination.
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("status") == "draft" {
			json.NewEncoder(w).Encode([]Listing{})
			return
		}
		if r.URL.Query().Get("page") == "1" {
			full := make([]Listing, perPage)
			for i := range full {
				full[i] = Listing{ID: i + 1, Status: "publish"}
			}
			json.NewEncoder(w).Encode(full)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"code":    "rest_post_invalid_page_number",
			"message": "The page number requested is larger than the number of pages available.",
		})
	})

	idx, err := newTestClient(t, handler).FetchExisting(context.Background())
	require.NoError(t, err)
	assert.Equal(t, perPage, idx.Len())
}

func TestCreateListing(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/wp-json/wp/v2/listings", r.URL.Path)

		var p Payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		assert.Equal(t, "Sunny Acres", p.Title)
		assert.Equal(t, "a:1:{i:0;i:162;}", p.Meta.Type)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Listing{ID: 42})
	})

	id, err := newTestClient(t, handler).CreateListing(context.Background(), &Payload{
		Title:  "Sunny Acres",
		Status: "publish",
		Meta:   &Meta{Type: "a:1:{i:0;i:162;}"},
	})
	require.NoError(t, err)
	assert.Equal(t, 42, id)
}

func TestUpdateListing(t *testing.T) {
	var gotPath string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(Listing{ID: 42})
	})

	err := newTestClient(t, handler).UpdateListing(context.Background(), 42, &Payload{Title: "Sunny Acres"})
	require.NoError(t, err)
	assert.Equal(t, "/wp-json/wp/v2/listings/42", gotPath)
}

func TestTrashListing(t *testing.T) {
	var gotMethod string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		json.NewEncoder(w).Encode(Listing{ID: 42})
	})

	require.NoError(t, newTestClient(t, handler).TrashListing(context.Background(), 42))
	assert.Equal(t, http.MethodDelete, gotMethod)
}

func TestDryRun_SkipsMutations(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "importer", "secret", WithRateLimit(1000), WithDryRun(true))

	id, err := c.CreateListing(context.Background(), &Payload{Title: "Sunny Acres"})
	require.NoError(t, err)
	assert.Equal(t, 0, id)
	require.NoError(t, c.UpdateListing(context.Background(), 1, &Payload{}))
	require.NoError(t, c.TrashListing(context.Background(), 1))
	assert.False(t, called)
}

func TestErrorStatus(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"rest_forbidden"}`, http.StatusForbidden)
	})

	_, err := newTestClient(t, handler).CreateListing(context.Background(), &Payload{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
