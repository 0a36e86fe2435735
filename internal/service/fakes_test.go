package service

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/testdrive-marketplace/internal/model"
	"github.com/iliyamo/testdrive-marketplace/internal/queue"
	"github.com/iliyamo/testdrive-marketplace/internal/repository"
)

// memDB is an in-memory stand-in for the MySQL schema, including the unique
// indexes the service relies on.
type memDB struct {
	mu           sync.Mutex
	clock        time.Time
	users        map[string]model.User
	tokens       map[string]memToken
	cars         map[string]model.Car
	requests     map[string]model.Request
	testimonials map[string]model.Testimonial
}

type memToken struct {
	userID  string
	exp     time.Time
	revoked bool
}

func newMemDB() *memDB {
	return &memDB{
		clock:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		users:        map[string]model.User{},
		tokens:       map[string]memToken{},
		cars:         map[string]model.Car{},
		requests:     map[string]model.Request{},
		testimonials: map[string]model.Testimonial{},
	}
}

// tick returns strictly increasing timestamps so newest-first ordering is
// deterministic.
func (m *memDB) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

type memUsers struct{ *memDB }

func (m memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, o := range m.users {
		if o.Email == u.Email || (u.FirebaseUID != "" && o.FirebaseUID == u.FirebaseUID) {
			return repository.ErrDuplicate
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = m.tick()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = *u
	return nil
}

func (m memUsers) find(match func(model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m memUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	return m.find(func(u model.User) bool { return u.ID == id })
}

func (m memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return m.find(func(u model.User) bool { return u.Email == email })
}

func (m memUsers) GetByFirebaseUID(_ context.Context, uid string) (*model.User, error) {
	return m.find(func(u model.User) bool { return u.FirebaseUID != "" && u.FirebaseUID == uid })
}

func (m memUsers) Update(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	u.UpdatedAt = m.tick()
	m.users[u.ID] = *u
	return nil
}

type memTokens struct{ *memDB }

func (m memTokens) StoreRefresh(_ context.Context, userID, hash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[hash] = memToken{userID: userID, exp: exp}
	return nil
}

func (m memTokens) ValidateRefresh(_ context.Context, hash string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[hash]
	if !ok || t.revoked || time.Now().After(t.exp) {
		return "", repository.ErrNotFound
	}
	return t.userID, nil
}

func (m memTokens) RevokeByHash(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[hash]; ok {
		t.revoked = true
		m.tokens[hash] = t
	}
	return nil
}

func (m memTokens) RevokeAllForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h, t := range m.tokens {
		if t.userID == userID {
			t.revoked = true
			m.tokens[h] = t
		}
	}
	return nil
}

type memCars struct{ *memDB }

func (m memCars) Create(_ context.Context, c *model.Car) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Images == nil {
		c.Images = []string{}
	}
	c.CreatedAt = m.tick()
	c.UpdatedAt = c.CreatedAt
	m.cars[c.ID] = *c
	return nil
}

func (m memCars) GetByID(_ context.Context, id string) (*model.Car, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cars[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (m memCars) ListAvailable(_ context.Context, keyword string) ([]model.CarWithOwner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kw := strings.ToLower(strings.TrimSpace(keyword))
	out := []model.CarWithOwner{}
	for _, c := range m.cars {
		if !c.IsAvailable {
			continue
		}
		hay := strings.ToLower(strings.Join([]string{c.Make, c.Model, c.Location, c.Description}, "\n"))
		if kw != "" && !strings.Contains(hay, kw) {
			continue
		}
		out = append(out, model.CarWithOwner{Car: c, OwnerName: m.users[c.OwnerID].Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m memCars) ListByOwner(_ context.Context, ownerID string) ([]model.Car, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Car{}
	for _, c := range m.cars {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m memCars) Update(_ context.Context, c *model.Car) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cars[c.ID]; !ok {
		return repository.ErrNotFound
	}
	c.UpdatedAt = m.tick()
	m.cars[c.ID] = *c
	return nil
}

func (m memCars) SetAvailability(_ context.Context, id string, available bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cars[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.IsAvailable = available
	m.cars[id] = c
	return nil
}

func (m memCars) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cars[id]; !ok {
		return repository.ErrNotFound
	}
	for _, r := range m.requests {
		if r.CarID == id && r.Status.Active() {
			return repository.ErrConflict
		}
	}
	for rid, r := range m.requests {
		if r.CarID == id {
			delete(m.requests, rid)
		}
	}
	delete(m.cars, id)
	return nil
}

type memRequests struct{ *memDB }

// activeTaken mimics the unique index on the generated active_key column.
func (m memRequests) activeTaken(r model.Request) bool {
	if !r.Status.Active() {
		return false
	}
	for _, o := range m.requests {
		if o.ID != r.ID && o.JournalistID == r.JournalistID && o.CarID == r.CarID && o.Status.Active() {
			return true
		}
	}
	return false
}

func (m memRequests) Create(_ context.Context, r *model.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeTaken(*r) {
		return repository.ErrDuplicate
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = m.tick()
	r.UpdatedAt = r.CreatedAt
	m.requests[r.ID] = *r
	return nil
}

func (m memRequests) GetByID(_ context.Context, id string) (*model.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (m memRequests) detail(r model.Request) model.RequestDetail {
	j, o, c := m.users[r.JournalistID], m.users[r.OwnerID], m.cars[r.CarID]
	return model.RequestDetail{
		Request:    r,
		Journalist: model.AccountSummary{ID: j.ID, Name: j.Name, Email: j.Email, Phone: j.Phone, Publication: j.Journalist.Publication},
		Owner:      model.AccountSummary{ID: o.ID, Name: o.Name, Email: o.Email, Phone: o.Phone},
		Car:        model.CarSummary{ID: c.ID, Make: c.Make, Model: c.Model, Year: c.Year, Location: c.Location, Images: c.Images},
	}
}

func (m memRequests) GetDetail(_ context.Context, id string) (*model.RequestDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	d := m.detail(r)
	return &d, nil
}

func (m memRequests) FindActive(_ context.Context, journalistID, carID string) (*model.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.JournalistID == journalistID && r.CarID == carID && r.Status.Active() {
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m memRequests) list(match func(model.Request) bool) []model.RequestDetail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.RequestDetail{}
	for _, r := range m.requests {
		if match(r) {
			out = append(out, m.detail(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m memRequests) ListByOwner(_ context.Context, ownerID string) ([]model.RequestDetail, error) {
	return m.list(func(r model.Request) bool { return r.OwnerID == ownerID }), nil
}

func (m memRequests) ListByJournalist(_ context.Context, journalistID string) ([]model.RequestDetail, error) {
	return m.list(func(r model.Request) bool { return r.JournalistID == journalistID }), nil
}

func (m memRequests) UpdateStatus(_ context.Context, id string, status model.RequestStatus, resp *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil
	}
	r.Status = status
	if m.activeTaken(r) {
		return repository.ErrDuplicate
	}
	if resp != nil {
		r.OwnerResponse = *resp
	}
	r.UpdatedAt = m.tick()
	m.requests[id] = r
	return nil
}

func (m memRequests) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.requests, id)
	return nil
}

type memTestimonials struct{ *memDB }

func (m memTestimonials) Create(_ context.Context, t *model.Testimonial) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = m.tick()
	t.UpdatedAt = t.CreatedAt
	m.testimonials[t.ID] = *t
	return nil
}

func (m memTestimonials) GetByID(_ context.Context, id string) (*model.Testimonial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.testimonials[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (m memTestimonials) List(_ context.Context, activeOnly bool) ([]model.Testimonial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Testimonial{}
	for _, t := range m.testimonials {
		if !activeOnly || t.IsActive {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m memTestimonials) Update(_ context.Context, t *model.Testimonial) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.testimonials[t.ID]; !ok {
		return repository.ErrNotFound
	}
	t.UpdatedAt = m.tick()
	m.testimonials[t.ID] = *t
	return nil
}

func (m memTestimonials) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.testimonials[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.testimonials, id)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.RequestEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.RequestEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type recordingImages struct {
	deleted []string
}

func (r *recordingImages) Delete(ref string) error {
	r.deleted = append(r.deleted, ref)
	return nil
}

func (r *recordingImages) Managed(ref string) bool {
	return strings.HasPrefix(path.Clean(ref), "/uploads/")
}
