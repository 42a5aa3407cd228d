package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"schuppenweg-backend/internal/models"
)

type memBlob struct {
	data        []byte
	contentType string
	createdAt   time.Time
}

// memBlobs mimics the bucket: List returns direct children, with
// sub-folders flagged and undated like Supabase storage reports them.
type memBlobs struct {
	mu          sync.Mutex
	objects     map[string]memBlob
	clock       time.Time
	listErr     map[string]error
	downloadErr map[string]error
	uploadErr   map[string]error
	removeErr   error
	removed     []string
}

func newMemBlobs() *memBlobs {
	return &memBlobs{
		objects:     map[string]memBlob{},
		clock:       time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		listErr:     map[string]error{},
		downloadErr: map[string]error{},
		uploadErr:   map[string]error{},
	}
}

// put stores a blob one minute after the previous one.
func (m *memBlobs) put(p string, data string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Minute)
	m.objects[p] = memBlob{data: []byte(data), contentType: "image/jpeg", createdAt: m.clock}
}

func (m *memBlobs) putAt(p string, data string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[p] = memBlob{data: []byte(data), contentType: "image/jpeg", createdAt: at}
}

func (m *memBlobs) has(p string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[p]
	return ok
}

func (m *memBlobs) get(p string) memBlob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[p]
}

func (m *memBlobs) List(_ context.Context, prefix string, opts models.ListOptions) ([]models.BlobObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.listErr[prefix]; err != nil {
		return nil, err
	}

	dir := strings.TrimSuffix(prefix, "/") + "/"
	files := map[string]time.Time{}
	folders := map[string]bool{}
	for p, obj := range m.objects {
		if !strings.HasPrefix(p, dir) {
			continue
		}
		rest := strings.TrimPrefix(p, dir)
		if i := strings.Index(rest, "/"); i >= 0 {
			folders[rest[:i]] = true
			continue
		}
		files[rest] = obj.createdAt
	}

	out := make([]models.BlobObject, 0, len(files)+len(folders))
	for name := range folders {
		out = append(out, models.BlobObject{Name: name, IsFolder: true})
	}
	for name, ts := range files {
		out = append(out, models.BlobObject{Name: name, CreatedAt: ts})
	}
	sort.Slice(out, func(i, j int) bool {
		if opts.SortBy == "created_at" {
			if opts.Descending {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *memBlobs) Download(_ context.Context, p string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.downloadErr[p]; err != nil {
		return nil, err
	}
	obj, ok := m.objects[p]
	if !ok {
		return nil, fmt.Errorf("download %s: %w", p, models.ErrNotFound)
	}
	return obj.data, nil
}

func (m *memBlobs) Upload(_ context.Context, p string, data []byte, contentType string, upsert bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.uploadErr[p]; err != nil {
		return err
	}
	if _, ok := m.objects[p]; ok && !upsert {
		return fmt.Errorf("upload %s: %w", p, models.ErrAlreadyExists)
	}
	m.clock = m.clock.Add(time.Minute)
	m.objects[p] = memBlob{data: data, contentType: contentType, createdAt: m.clock}
	return nil
}

func (m *memBlobs) Remove(_ context.Context, paths ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeErr != nil {
		return m.removeErr
	}
	for _, p := range paths {
		delete(m.objects, p)
		m.removed = append(m.removed, p)
	}
	return nil
}

func (m *memBlobs) PublicURL(p string) string {
	return "https://project.supabase.co/storage/v1/object/public/head-images/" + p
}

func (m *memBlobs) SignedURL(_ context.Context, p string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://signed/%s?ttl=%d", p, int(ttl.Seconds())), nil
}

// memStore enforces the same unique constraints as the SQL schema.
type memStore struct {
	mu          sync.Mutex
	orders      map[uuid.UUID]models.Order
	images      []models.OrderImage
	lookupErr   error
	createErr   error
	imageErr    map[models.Position]error
	createCalls int
	// beforeCreate runs inside CreateOrder to simulate a concurrent writer.
	beforeCreate func()
}

func newMemStore() *memStore {
	return &memStore{orders: map[uuid.UUID]models.Order{}, imageErr: map[models.Position]error{}}
}

func (s *memStore) GetOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &o, nil
}

func (s *memStore) GetOrderByPaymentIntent(_ context.Context, pi string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	for _, o := range s.orders {
		if o.PaymentIntentID == pi {
			o := o
			return &o, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *memStore) CreateOrder(_ context.Context, order *models.Order) (*models.Order, error) {
	s.mu.Lock()
	hook := s.beforeCreate
	s.beforeCreate = nil
	s.mu.Unlock()
	if hook != nil {
		hook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.createErr != nil {
		return nil, s.createErr
	}
	for _, o := range s.orders {
		if o.PaymentIntentID == order.PaymentIntentID {
			return nil, models.ErrAlreadyExists
		}
	}
	created := *order
	if created.ID == uuid.Nil {
		created.ID = uuid.New()
	}
	created.CreatedAt = time.Now()
	s.orders[created.ID] = created
	return &created, nil
}

func (s *memStore) insertOrder(pi string) models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := models.Order{
		ID: uuid.New(), Email: "first@example.com", CustomerName: "First", Address: "A 1",
		City: "Berlin", PostalCode: "10115", PaymentIntentID: pi,
		PaymentStatus: models.PaymentPaid, Status: models.StatusPaid, CreatedAt: time.Now(),
	}
	s.orders[o.ID] = o
	return o
}

func (s *memStore) SetOrderTempID(_ context.Context, id uuid.UUID, tempID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return models.ErrNotFound
	}
	if !o.TempID.Valid {
		o.TempID.String, o.TempID.Valid = tempID, true
		s.orders[id] = o
	}
	return nil
}

func (s *memStore) UpdateOrderAdmin(_ context.Context, id uuid.UUID, update models.AdminUpdate) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if update.Status != nil {
		o.Status = *update.Status
	}
	s.orders[id] = o
	return &o, nil
}

func (s *memStore) ListOrdersWithoutImages(_ context.Context, limit int) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	withImages := map[uuid.UUID]bool{}
	for _, img := range s.images {
		withImages[img.OrderID] = true
	}
	var out []models.Order
	for _, o := range s.orders {
		if !withImages[o.ID] {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) ListOrderImages(_ context.Context, orderID uuid.UUID) ([]models.OrderImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.OrderImage
	for _, img := range s.images {
		if img.OrderID == orderID {
			out = append(out, img)
		}
	}
	return out, nil
}

func (s *memStore) ImageExists(_ context.Context, orderID uuid.UUID, position models.Position) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, img := range s.images {
		if img.OrderID == orderID && img.Position == position {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CreateOrderImage(_ context.Context, image *models.OrderImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.imageErr[image.Position]; err != nil {
		return err
	}
	for _, img := range s.images {
		if img.OrderID == image.OrderID && img.Position == image.Position {
			return models.ErrAlreadyExists
		}
	}
	if image.ID == uuid.Nil {
		image.ID = uuid.New()
	}
	s.images = append(s.images, *image)
	return nil
}

func (s *memStore) positions(orderID uuid.UUID) []models.Position {
	images, _ := s.ListOrderImages(context.Background(), orderID)
	out := make([]models.Position, 0, len(images))
	for _, img := range images {
		out = append(out, img.Position)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var errBoom = errors.New("boom")
