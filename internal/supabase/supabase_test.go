package supabase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"schuppenweg-backend/internal/models"
)

func newTestStorage(t *testing.T, handler http.HandlerFunc) *StorageClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewStorageClient(srv.URL+"/", "service-role", "head-images")
	require.NoError(t, err)
	return client
}

func TestNewStorageClient_Validation(t *testing.T) {
	_, err := NewStorageClient("", "key", "head-images")
	assert.Error(t, err)

	_, err = NewStorageClient("https://project.supabase.co", "key", "")
	assert.Error(t, err)
}

func TestStorageClient_PublicURL(t *testing.T) {
	client, err := NewStorageClient("https://project.supabase.co/", "key", "head-images")
	require.NoError(t, err)

	assert.Equal(t,
		"https://project.supabase.co/storage/v1/object/public/head-images/temp/t1/front.jpg",
		client.PublicURL("temp/t1/front.jpg"))
	assert.Equal(t, "head-images", client.Bucket())
}

func TestStorageClient_List(t *testing.T) {
	var body map[string]any
	client := newTestStorage(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/storage/v1/object/list/head-images", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"name":"temp_1700000000_ab","id":"","created_at":""},
			{"name":".emptyFolderPlaceholder","id":"x","created_at":"2025-01-01T00:00:00Z"},
			{"name":"front.jpg","id":"obj-1","created_at":"2025-03-04T05:06:07.123Z"}
		]`))
	})

	objects, err := client.List(context.Background(), "temp", models.ListOptions{Limit: 100, SortBy: "created_at", Descending: true})
	require.NoError(t, err)
	require.Len(t, objects, 2)

	assert.True(t, objects[0].IsFolder)
	assert.Equal(t, "temp_1700000000_ab", objects[0].Name)
	assert.True(t, objects[0].CreatedAt.IsZero())

	assert.False(t, objects[1].IsFolder)
	assert.Equal(t, 2025, objects[1].CreatedAt.Year())

	assert.Equal(t, "temp", body["prefix"])
	assert.EqualValues(t, 100, body["limit"])
	sortBy, _ := body["sortBy"].(map[string]any)
	assert.Equal(t, "created_at", sortBy["column"])
	assert.Equal(t, "desc", sortBy["order"])
}

func TestStorageClient_UploadDuplicate(t *testing.T) {
	client := newTestStorage(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "false", r.Header.Get("x-upsert"))
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"statusCode":"409","error":"Duplicate","message":"The resource already exists"}`))
	})

	err := client.Upload(context.Background(), "order-1/front.jpg", []byte("x"), "image/jpeg", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrAlreadyExists))
}

func TestStorageClient_DownloadError(t *testing.T) {
	client := newTestStorage(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Object not found"}`))
	})

	_, err := client.Download(context.Background(), "temp/t1/front.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "temp/t1/front.jpg")
	assert.False(t, errors.Is(err, models.ErrAlreadyExists))
}

func TestRestOrder_ToModel(t *testing.T) {
	orderID := uuid.New()
	payload := `{
		"id":"` + orderID.String() + `",
		"email":"a@b.de","customer_name":"Anna","address":"Weg 1","city":"Bonn","postal_code":"53111",
		"payment_intent_id":"pi_1","payment_status":"paid","status":"diagnosed",
		"diagnosis":"oily","tracking_number":null,"temp_id":"temp_1",
		"created_at":"2025-05-01T10:00:00+00:00",
		"order_images":[{"id":"` + uuid.NewString() + `","order_id":"` + orderID.String() + `",
			"image_url":"https://x/head-images/` + orderID.String() + `/top.jpg","position":"top",
			"created_at":"2025-05-01T10:01:00+00:00"}]
	}`

	var row restOrder
	require.NoError(t, json.Unmarshal([]byte(payload), &row))
	order := row.toModel()

	assert.Equal(t, orderID, order.ID)
	assert.Equal(t, models.StatusDiagnosed, order.Status)
	assert.Equal(t, sql.NullString{String: "oily", Valid: true}, order.Diagnosis)
	assert.False(t, order.TrackingNumber.Valid)
	assert.Equal(t, "temp_1", order.TempID.String)
	require.Len(t, order.Images, 1)
	assert.Equal(t, models.PositionTop, order.Images[0].Position)
	assert.Equal(t, orderID, order.Images[0].OrderID)
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate("op", nil))
	assert.ErrorIs(t, translate("get order", sql.ErrNoRows), models.ErrNotFound)
	assert.ErrorIs(t, translate("create order", &pq.Error{Code: uniqueViolation}), models.ErrAlreadyExists)

	err := translate("create order", &pq.Error{Code: "23503", Message: "fk"})
	assert.False(t, errors.Is(err, models.ErrAlreadyExists))
	assert.True(t, strings.HasPrefix(err.Error(), "failed to create order"))
}
