package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rackcentre/incident-logger/internal/core/domain"
	"github.com/rackcentre/incident-logger/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories
// ---------------------------------------------------------------------------

type stubIncidentRepo struct {
	incidents []*domain.Incident // insertion order preserved
	nextID    int
	insertErr error
	updateErr error
}

func newStubIncidentRepo() *stubIncidentRepo {
	return &stubIncidentRepo{}
}

func (r *stubIncidentRepo) Insert(_ context.Context, inc *domain.Incident) (*domain.Incident, error) {
	if r.insertErr != nil {
		return nil, r.insertErr
	}
	r.nextID++
	clone := *inc
	clone.ID = fmt.Sprintf("inc-%d", r.nextID)
	r.incidents = append(r.incidents, &clone)
	out := clone
	return &out, nil
}

func (r *stubIncidentRepo) FindByID(_ context.Context, id string) (*domain.Incident, error) {
	for _, inc := range r.incidents {
		if inc.ID == id {
			clone := *inc
			return &clone, nil
		}
	}
	return nil, domain.ErrIncidentNotFound
}

func matches(inc *domain.Incident, f ports.IncidentFilter) bool {
	if f.UserID != "" && inc.UserID != f.UserID {
		return false
	}
	if f.Type != "" && string(inc.Type) != f.Type {
		return false
	}
	if f.Impact != "" && string(inc.Impact) != f.Impact {
		return false
	}
	if !f.DateFrom.IsZero() && inc.Date.Before(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && inc.Date.After(f.DateTo) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		titleMatch := strings.Contains(strings.ToLower(inc.Title), needle)
		descMatch := strings.Contains(strings.ToLower(inc.Description), needle)
		if !titleMatch && !descMatch {
			return false
		}
	}
	return true
}

// Find applies the same filter, sort, and slicing the Mongo repo would.
func (r *stubIncidentRepo) Find(_ context.Context, f ports.IncidentFilter, s ports.IncidentSort, skip, limit int64) ([]*domain.Incident, error) {
	var matched []*domain.Incident
	for _, inc := range r.incidents {
		if matches(inc, f) {
			clone := *inc
			matched = append(matched, &clone)
		}
	}

	less := func(a, b *domain.Incident) bool {
		switch s.Field {
		case "impact":
			return a.Impact.Ordinal() < b.Impact.Ordinal()
		case "date":
			return a.Date.Before(b.Date)
		case "title":
			return a.Title < b.Title
		case "type":
			return a.Type < b.Type
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if s.Descending {
			return less(matched[j], matched[i])
		}
		return less(matched[i], matched[j])
	})

	if skip > int64(len(matched)) {
		return nil, nil
	}
	matched = matched[skip:]
	if limit > 0 && int64(len(matched)) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *stubIncidentRepo) Count(_ context.Context, f ports.IncidentFilter) (int64, error) {
	var n int64
	for _, inc := range r.incidents {
		if matches(inc, f) {
			n++
		}
	}
	return n, nil
}

func (r *stubIncidentRepo) AggregateGroupCount(_ context.Context, f ports.IncidentFilter, groupField string) (map[string]int64, error) {
	groups := make(map[string]int64)
	for _, inc := range r.incidents {
		if !matches(inc, f) {
			continue
		}
		switch groupField {
		case "type":
			groups[string(inc.Type)]++
		case "impact":
			groups[string(inc.Impact)]++
		}
	}
	return groups, nil
}

func (r *stubIncidentRepo) CountCreatedSince(_ context.Context, f ports.IncidentFilter, since time.Time) (int64, error) {
	var n int64
	for _, inc := range r.incidents {
		if matches(inc, f) && !inc.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *stubIncidentRepo) UpdateByID(_ context.Context, id string, in *domain.Incident) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	for i, inc := range r.incidents {
		if inc.ID == id {
			clone := *in
			clone.ID = id
			clone.UserID = inc.UserID
			clone.CreatedAt = inc.CreatedAt
			r.incidents[i] = &clone
			return nil
		}
	}
	return domain.ErrIncidentNotFound
}

func (r *stubIncidentRepo) DeleteByID(_ context.Context, id string) error {
	for i, inc := range r.incidents {
		if inc.ID == id {
			r.incidents = append(r.incidents[:i], r.incidents[i+1:]...)
			return nil
		}
	}
	return domain.ErrIncidentNotFound
}

type stubUserRepo struct {
	byID map[string]*domain.User
}

func newStubUserRepo(users ...*domain.User) *stubUserRepo {
	r := &stubUserRepo{byID: make(map[string]*domain.User)}
	for _, u := range users {
		clone := *u
		r.byID[u.ID] = &clone
	}
	return r
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := r.byID[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.byID {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	for _, u := range r.byID {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	clone := *user
	clone.ID = fmt.Sprintf("user-%d", len(r.byID)+1)
	r.byID[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubUserRepo) UpdateProfilePic(_ context.Context, id, fileKey string) error {
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.ProfilePic = fileKey
	return nil
}

func (r *stubUserRepo) UpdateRole(_ context.Context, id, role string) error {
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Role = role
	return nil
}

func (r *stubUserRepo) ListByRole(_ context.Context, role string) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range r.byID {
		if u.Role == role {
			clone := *u
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubUserRepo) CountByRole(_ context.Context, role string) (int64, error) {
	var n int64
	for _, u := range r.byID {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// stubFileStore records puts and deletes; putErr forces Put to fail.
type stubFileStore struct {
	stored  map[string][]byte
	deleted []string
	putErr  error
	delErr  error
	nextKey int
}

func newStubFileStore() *stubFileStore {
	return &stubFileStore{stored: make(map[string][]byte)}
}

func (s *stubFileStore) Put(_ context.Context, data []byte, _ string) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	s.nextKey++
	key := fmt.Sprintf("file-%d", s.nextKey)
	s.stored[key] = data
	return key, nil
}

func (s *stubFileStore) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	if s.delErr != nil {
		return s.delErr
	}
	delete(s.stored, key)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

var (
	alice = &domain.User{ID: "user-alice", Name: "Alice", Email: "alice@example.com", Role: domain.RoleUser}
	bob   = &domain.User{ID: "user-bob", Name: "Bob", Email: "bob@example.com", Role: domain.RoleUser}
	root  = &domain.User{ID: "user-root", Name: "Root", Email: "root@example.com", Role: domain.RoleAdmin}
)

func validInput() ports.IncidentInput {
	return ports.IncidentInput{
		Title:       "Slip near loading dock",
		Description: "Employee slipped on wet floor",
		Date:        time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC),
		Type:        "Injury",
		Impact:      "Medium",
	}
}

func newService(repo *stubIncidentRepo, users *stubUserRepo, files *stubFileStore) *IncidentService {
	return NewIncidentService(repo, users, files, nil, discardLogger)
}

func mustCreate(t *testing.T, svc *IncidentService, owner *domain.User, in ports.IncidentInput, file *ports.Attachment) *domain.Incident {
	t.Helper()
	inc, err := svc.Create(context.Background(), owner, in, file)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return inc
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestIncidentService_Create_Success(t *testing.T) {
	repo := newStubIncidentRepo()
	svc := newService(repo, newStubUserRepo(alice), newStubFileStore())

	inc := mustCreate(t, svc, alice, validInput(), nil)

	if inc.ID == "" {
		t.Error("expected assigned id")
	}
	if inc.UserID != alice.ID {
		t.Errorf("owner = %q, want %q", inc.UserID, alice.ID)
	}
	if inc.Reporter.Name != "Alice" || inc.Reporter.Email != "alice@example.com" {
		t.Errorf("reporter snapshot not captured: %+v", inc.Reporter)
	}
	if inc.Type != domain.TypeInjury || inc.Impact != domain.ImpactMedium {
		t.Errorf("enums not applied: %s / %s", inc.Type, inc.Impact)
	}
	if inc.CreatedAt.IsZero() || inc.UpdatedAt.IsZero() {
		t.Error("timestamps must be assigned")
	}
	if inc.File != "" {
		t.Errorf("no attachment submitted, file = %q", inc.File)
	}
}

func TestIncidentService_Create_ValidationErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ports.IncidentInput)
		field  string
	}{
		{"missing description", func(in *ports.IncidentInput) { in.Description = "" }, "description"},
		{"missing date", func(in *ports.IncidentInput) { in.Date = time.Time{} }, "date"},
		{"missing type", func(in *ports.IncidentInput) { in.Type = "" }, "type"},
		{"unknown type", func(in *ports.IncidentInput) { in.Type = "Explosion" }, "type"},
		{"missing impact", func(in *ports.IncidentInput) { in.Impact = "" }, "impact"},
		{"unknown impact", func(in *ports.IncidentInput) { in.Impact = "Severe" }, "impact"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newStubIncidentRepo()
			svc := newService(repo, newStubUserRepo(alice), newStubFileStore())

			in := validInput()
			tc.mutate(&in)

			_, err := svc.Create(context.Background(), alice, in, nil)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tc.field {
				t.Errorf("field = %q, want %q", ve.Field, tc.field)
			}
			if len(repo.incidents) != 0 {
				t.Error("invalid input must not be persisted")
			}
		})
	}
}

func TestIncidentService_Create_WithAttachment(t *testing.T) {
	repo := newStubIncidentRepo()
	files := newStubFileStore()
	svc := newService(repo, newStubUserRepo(alice), files)

	inc := mustCreate(t, svc, alice, validInput(), &ports.Attachment{Name: "photo.jpg", Data: []byte("jpeg")})

	if inc.File == "" {
		t.Fatal("attachment reference not populated")
	}
	if _, ok := files.stored[inc.File]; !ok {
		t.Errorf("record references %q but the store has no such object", inc.File)
	}
}

func TestIncidentService_Create_PutFails_NoRecord(t *testing.T) {
	repo := newStubIncidentRepo()
	files := newStubFileStore()
	files.putErr = errors.New("disk full")
	svc := newService(repo, newStubUserRepo(alice), files)

	_, err := svc.Create(context.Background(), alice, validInput(), &ports.Attachment{Name: "a.pdf", Data: []byte("x")})
	if !domain.IsStorage(err) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if len(repo.incidents) != 0 {
		t.Error("failed put must not leave an incident behind")
	}
	if len(files.stored) != 0 {
		t.Error("failed put must not leave an object behind")
	}
}

func TestIncidentService_Create_InsertFails_FileCleanedUp(t *testing.T) {
	repo := newStubIncidentRepo()
	repo.insertErr = errors.New("write conflict")
	files := newStubFileStore()
	svc := newService(repo, newStubUserRepo(alice), files)

	_, err := svc.Create(context.Background(), alice, validInput(), &ports.Attachment{Name: "a.pdf", Data: []byte("x")})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(files.stored) != 0 {
		t.Errorf("orphaned object left in store: %v", files.stored)
	}
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestIncidentService_Update_OwnerOnly(t *testing.T) {
	repo := newStubIncidentRepo()
	svc := newService(repo, newStubUserRepo(alice, bob, root), newStubFileStore())
	inc := mustCreate(t, svc, alice, validInput(), nil)

	in := validInput()
	in.Description = "updated"

	if _, err := svc.Update(context.Background(), bob, inc.ID, in, nil); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("non-owner update: got %v, want ErrForbidden", err)
	}
	// Admins delete, they do not edit.
	if _, err := svc.Update(context.Background(), root, inc.ID, in, nil); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("admin update: got %v, want ErrForbidden", err)
	}

	updated, err := svc.Update(context.Background(), alice, inc.ID, in, nil)
	if err != nil {
		t.Fatalf("owner update failed: %v", err)
	}
	if updated.Description != "updated" {
		t.Errorf("description = %q", updated.Description)
	}
	if !updated.UpdatedAt.After(inc.UpdatedAt) && !updated.UpdatedAt.Equal(inc.UpdatedAt) {
		t.Error("updated_at not refreshed")
	}
}

func TestIncidentService_Update_NotFound(t *testing.T) {
	svc := newService(newStubIncidentRepo(), newStubUserRepo(alice), newStubFileStore())

	_, err := svc.Update(context.Background(), alice, "inc-missing", validInput(), nil)
	if !errors.Is(err, domain.ErrIncidentNotFound) {
		t.Errorf("got %v, want ErrIncidentNotFound", err)
	}
}

func TestIncidentService_Update_AttachmentSwap(t *testing.T) {
	repo := newStubIncidentRepo()
	files := newStubFileStore()
	svc := newService(repo, newStubUserRepo(alice), files)

	inc := mustCreate(t, svc, alice, validInput(), &ports.Attachment{Name: "old.jpg", Data: []byte("old")})
	oldKey := inc.File

	updated, err := svc.Update(context.Background(), alice, inc.ID, validInput(), &ports.Attachment{Name: "new.jpg", Data: []byte("new")})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if updated.File == oldKey || updated.File == "" {
		t.Fatalf("attachment reference not swapped: %q", updated.File)
	}
	if _, ok := files.stored[updated.File]; !ok {
		t.Error("new object missing from store")
	}
	if _, ok := files.stored[oldKey]; ok {
		t.Error("old object still live after swap")
	}
}

func TestIncidentService_Update_PutFails_NoMutation(t *testing.T) {
	repo := newStubIncidentRepo()
	files := newStubFileStore()
	svc := newService(repo, newStubUserRepo(alice), files)

	inc := mustCreate(t, svc, alice, validInput(), &ports.Attachment{Name: "old.jpg", Data: []byte("old")})
	files.putErr = errors.New("disk full")

	in := validInput()
	in.Description = "should not land"

	_, err := svc.Update(context.Background(), alice, inc.ID, in, &ports.Attachment{Name: "new.jpg", Data: []byte("new")})
	if !domain.IsStorage(err) {
		t.Fatalf("expected StorageError, got %v", err)
	}

	stored, _ := repo.FindByID(context.Background(), inc.ID)
	if stored.Description != validInput().Description {
		t.Error("record mutated despite aborted update")
	}
	if stored.File != inc.File {
		t.Error("attachment reference changed despite aborted update")
	}
}

func TestIncidentService_Update_KeepsAttachmentWhenNoneSupplied(t *testing.T) {
	repo := newStubIncidentRepo()
	files := newStubFileStore()
	svc := newService(repo, newStubUserRepo(alice), files)

	inc := mustCreate(t, svc, alice, validInput(), &ports.Attachment{Name: "keep.jpg", Data: []byte("keep")})

	updated, err := svc.Update(context.Background(), alice, inc.ID, validInput(), nil)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.File != inc.File {
		t.Errorf("file = %q, want untouched %q", updated.File, inc.File)
	}
	if len(files.deleted) != 0 {
		t.Error("nothing should be deleted when no new attachment arrives")
	}
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestIncidentService_Delete_OwnershipPolicy(t *testing.T) {
	repo := newStubIncidentRepo()
	svc := newService(repo, newStubUserRepo(alice, bob, root), newStubFileStore())
	inc := mustCreate(t, svc, alice, validInput(), nil)

	if err := svc.Delete(context.Background(), bob, inc.ID, true); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("non-owner delete: got %v, want ErrForbidden", err)
	}
	if err := svc.Delete(context.Background(), alice, inc.ID, true); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if err := svc.Delete(context.Background(), alice, inc.ID, true); !errors.Is(err, domain.ErrIncidentNotFound) {
		t.Errorf("second delete: got %v, want ErrIncidentNotFound", err)
	}
}

func TestIncidentService_Delete_AdminPathSkipsOwnership(t *testing.T) {
	repo := newStubIncidentRepo()
	svc := newService(repo, newStubUserRepo(alice, root), newStubFileStore())
	inc := mustCreate(t, svc, alice, validInput(), nil)

	if err := svc.Delete(context.Background(), root, inc.ID, false); err != nil {
		t.Fatalf("admin delete failed: %v", err)
	}
	if len(repo.incidents) != 0 {
		t.Error("record survived admin delete")
	}
}

func TestIncidentService_Delete_RemovesAttachment(t *testing.T) {
	repo := newStubIncidentRepo()
	files := newStubFileStore()
	svc := newService(repo, newStubUserRepo(alice), files)
	inc := mustCreate(t, svc, alice, validInput(), &ports.Attachment{Name: "a.jpg", Data: []byte("x")})

	if err := svc.Delete(context.Background(), alice, inc.ID, true); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(files.stored) != 0 {
		t.Error("attachment object not cleaned up")
	}
}

func TestIncidentService_Delete_CleanupFailureIsSwallowed(t *testing.T) {
	repo := newStubIncidentRepo()
	files := newStubFileStore()
	files.delErr = errors.New("store offline")
	svc := newService(repo, newStubUserRepo(alice), files)
	inc := mustCreate(t, svc, alice, validInput(), &ports.Attachment{Name: "a.jpg", Data: []byte("x")})

	if err := svc.Delete(context.Background(), alice, inc.ID, true); err != nil {
		t.Fatalf("record deletion must succeed despite cleanup failure, got %v", err)
	}
	if len(repo.incidents) != 0 {
		t.Error("record not deleted")
	}
}

// ---------------------------------------------------------------------------
// List / scope
// ---------------------------------------------------------------------------

func TestIncidentService_List_SelfScopeIsolation(t *testing.T) {
	repo := newStubIncidentRepo()
	svc := newService(repo, newStubUserRepo(alice, bob), newStubFileStore())
	mustCreate(t, svc, alice, validInput(), nil)
	mustCreate(t, svc, bob, validInput(), nil)
	mustCreate(t, svc, bob, validInput(), nil)

	// Adversarial criteria cannot widen the scope: search matches both
	// owners' records, but only alice's come back.
	result, err := svc.List(context.Background(), alice, ports.ListCriteria{Search: "wet floor"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("total = %d, want 1", result.Total)
	}
	for _, inc := range result.Items {
		if inc.UserID != alice.ID {
			t.Errorf("foreign record leaked: owner %q", inc.UserID)
		}
	}
}

func TestIncidentService_List_FiltersAreConjunctive(t *testing.T) {
	repo := newStubIncidentRepo()
	svc := newService(repo, newStubUserRepo(alice), newStubFileStore())

	in := validInput()
	mustCreate(t, svc, alice, in, nil)

	in2 := validInput()
	in2.Type = "Hazard"
	mustCreate(t, svc, alice, in2, nil)

	result, err := svc.List(context.Background(), alice, ports.ListCriteria{Type: "Injury", Impact: "Medium"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if result.Total != 1 {
		t.Errorf("total = %d, want 1", result.Total)
	}

	// A criterion that matches nothing in combination yields zero rows.
	result, _ = svc.List(context.Background(), alice, ports.ListCriteria{Type: "Hazard", Search: "no such text"})
	if result.Total != 0 {
		t.Errorf("total = %d, want 0", result.Total)
	}
}

func TestIncidentService_List_SortByImpactOrdinal(t *testing.T) {
	repo := newStubIncidentRepo()
	svc := newService(repo, newStubUserRepo(alice), newStubFileStore())

	for _, impact := range []string{"Low", "Critical", "Medium"} {
		in := validInput()
		in.Impact = impact
		mustCreate(t, svc, alice, in, nil)
	}

	result, err := svc.List(context.Background(), alice, ports.ListCriteria{SortBy: "impact", SortOrder: "desc"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	got := []string{}
	for _, inc := range result.Items {
		got = append(got, string(inc.Impact))
	}
	want := []string{"Critical", "Medium", "Low"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("descending order = %v, want %v", got, want)
		}
	}

	result, _ = svc.List(context.Background(), alice, ports.ListCriteria{SortBy: "impact", SortOrder: "asc"})
	got = got[:0]
	for _, inc := range result.Items {
		got = append(got, string(inc.Impact))
	}
	want = []string{"Low", "Medium", "Critical"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ascending order = %v, want %v", got, want)
		}
	}
}

func TestIncidentService_List_Pagination(t *testing.T) {
	repo := newStubIncidentRepo()
	svc := newService(repo, newStubUserRepo(alice), newStubFileStore())
	for i := 0; i < 12; i++ {
		mustCreate(t, svc, alice, validInput(), nil)
	}

	page1, err := svc.List(context.Background(), alice, ports.ListCriteria{Page: 1, Limit: 5})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page1.Items) != 5 {
		t.Errorf("page 1 has %d items, want 5", len(page1.Items))
	}
	if page1.Total != 12 || page1.TotalPages != 3 {
		t.Errorf("total=%d totalPages=%d, want 12/3", page1.Total, page1.TotalPages)
	}

	page3, _ := svc.List(context.Background(), alice, ports.ListCriteria{Page: 3, Limit: 5})
	if len(page3.Items) != 2 {
		t.Errorf("page 3 has %d items, want 2", len(page3.Items))
	}
}

func TestIncidentService_CreateThenList_RoundTrip(t *testing.T) {
	repo := newStubIncidentRepo()
	svc := newService(repo, newStubUserRepo(alice), newStubFileStore())

	in := validInput()
	created := mustCreate(t, svc, alice, in, &ports.Attachment{Name: "evidence.pdf", Data: []byte("pdf")})

	result, err := svc.List(context.Background(), alice, ports.ListCriteria{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(result.Items))
	}

	got := result.Items[0]
	if got.ID != created.ID || got.Title != in.Title || got.Description != in.Description {
		t.Errorf("fields changed in round trip: %+v", got)
	}
	if !got.Date.Equal(in.Date) || got.Type != domain.TypeInjury || got.Impact != domain.ImpactMedium {
		t.Errorf("fields changed in round trip: %+v", got)
	}
	if got.File == "" {
		t.Error("attachment reference lost in round trip")
	}
}

// ---------------------------------------------------------------------------
// Admin listing
// ---------------------------------------------------------------------------

func TestIncidentService_AdminList_RequiresAdmin(t *testing.T) {
	svc := newService(newStubIncidentRepo(), newStubUserRepo(alice), newStubFileStore())

	_, err := svc.AdminList(context.Background(), alice, ports.ListCriteria{})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("got %v, want ErrForbidden", err)
	}
}

func TestIncidentService_AdminList_JoinsLiveOwner(t *testing.T) {
	repo := newStubIncidentRepo()
	users := newStubUserRepo(alice, bob, root)
	svc := newService(repo, users, newStubFileStore())

	mustCreate(t, svc, alice, validInput(), nil)
	mustCreate(t, svc, bob, validInput(), nil)

	// Alice renames herself after reporting; the admin view shows the
	// live name, not the snapshot.
	users.byID[alice.ID].Name = "Alice Renamed"

	result, err := svc.AdminList(context.Background(), root, ports.ListCriteria{})
	if err != nil {
		t.Fatalf("admin list failed: %v", err)
	}
	if result.Total != 2 {
		t.Fatalf("total = %d, want 2", result.Total)
	}

	for _, item := range result.Items {
		if item.UserID == alice.ID {
			if item.Owner.Name != "Alice Renamed" {
				t.Errorf("owner join = %q, want live name", item.Owner.Name)
			}
			if item.Reporter.Name != "Alice" {
				t.Errorf("snapshot = %q, must stay frozen", item.Reporter.Name)
			}
		}
	}
}

func TestIncidentService_AdminList_DeletedOwnerFallsBackToSnapshot(t *testing.T) {
	repo := newStubIncidentRepo()
	users := newStubUserRepo(alice, root)
	svc := newService(repo, users, newStubFileStore())
	mustCreate(t, svc, alice, validInput(), nil)

	delete(users.byID, alice.ID)

	result, err := svc.AdminList(context.Background(), root, ports.ListCriteria{})
	if err != nil {
		t.Fatalf("admin list failed: %v", err)
	}
	if result.Items[0].Owner.Name != "Alice" {
		t.Errorf("owner = %q, want snapshot fallback", result.Items[0].Owner.Name)
	}
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

func seedStatsData(t *testing.T, svc *IncidentService) {
	t.Helper()
	specs := []struct{ typ, impact string }{
		{"Injury", "Low"},
		{"Injury", "Critical"},
		{"Hazard", "Critical"},
	}
	for _, s := range specs {
		in := validInput()
		in.Type = s.typ
		in.Impact = s.impact
		mustCreate(t, svc, alice, in, nil)
	}
}

func TestIncidentService_Stats_Grouping(t *testing.T) {
	repo := newStubIncidentRepo()
	svc := newService(repo, newStubUserRepo(alice, root), newStubFileStore())
	seedStatsData(t, svc)

	stats, err := svc.Stats(context.Background(), root, ports.ScopeAll)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}

	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if stats.ByType["Injury"] != 2 || stats.ByType["Hazard"] != 1 {
		t.Errorf("byType = %v", stats.ByType)
	}
	if _, ok := stats.ByType["Near Miss"]; ok {
		t.Error("absent enum value must not appear as a zero-count group")
	}
	if stats.ByImpact["Low"] != 1 || stats.ByImpact["Critical"] != 2 {
		t.Errorf("byImpact = %v", stats.ByImpact)
	}
	if stats.Recent30d != 3 {
		t.Errorf("recent30d = %d, want 3 (all just created)", stats.Recent30d)
	}
	if stats.TotalUsers != 1 {
		t.Errorf("totalUsers = %d, want 1 non-admin account", stats.TotalUsers)
	}
}

func TestIncidentService_Stats_AllScopeRequiresAdmin(t *testing.T) {
	svc := newService(newStubIncidentRepo(), newStubUserRepo(alice), newStubFileStore())

	_, err := svc.Stats(context.Background(), alice, ports.ScopeAll)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("got %v, want ErrForbidden", err)
	}
}

func TestIncidentService_Stats_SelfScopeOnlyCountsOwnRecords(t *testing.T) {
	repo := newStubIncidentRepo()
	svc := newService(repo, newStubUserRepo(alice, bob), newStubFileStore())
	mustCreate(t, svc, alice, validInput(), nil)
	mustCreate(t, svc, bob, validInput(), nil)

	stats, err := svc.Stats(context.Background(), alice, ports.ScopeSelf)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Total != 1 {
		t.Errorf("total = %d, want 1", stats.Total)
	}
}

// cachedStats returns a fixed result to prove the cache short-circuits the
// aggregation.
type stubStatsCache struct {
	cached *ports.Stats
	set    *ports.Stats
}

func (c *stubStatsCache) Get(context.Context) (*ports.Stats, error) { return c.cached, nil }
func (c *stubStatsCache) Set(_ context.Context, s *ports.Stats) error {
	c.set = s
	return nil
}

func TestIncidentService_Stats_ServedFromCache(t *testing.T) {
	repo := newStubIncidentRepo()
	cache := &stubStatsCache{cached: &ports.Stats{Total: 99}}
	svc := NewIncidentService(repo, newStubUserRepo(root), newStubFileStore(), cache, discardLogger)

	stats, err := svc.Stats(context.Background(), root, ports.ScopeAll)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Total != 99 {
		t.Errorf("total = %d, want cached 99", stats.Total)
	}
}

func TestIncidentService_Stats_PopulatesCacheOnMiss(t *testing.T) {
	repo := newStubIncidentRepo()
	cache := &stubStatsCache{}
	svc := NewIncidentService(repo, newStubUserRepo(alice, root), newStubFileStore(), cache, discardLogger)
	mustCreate(t, svc, alice, validInput(), nil)

	if _, err := svc.Stats(context.Background(), root, ports.ScopeAll); err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if cache.set == nil || cache.set.Total != 1 {
		t.Errorf("cache not populated: %+v", cache.set)
	}
}

// ---------------------------------------------------------------------------
// Admin user listing
// ---------------------------------------------------------------------------

func TestIncidentService_AdminListUsers(t *testing.T) {
	repo := newStubIncidentRepo()
	svc := newService(repo, newStubUserRepo(alice, bob, root), newStubFileStore())
	mustCreate(t, svc, alice, validInput(), nil)
	mustCreate(t, svc, alice, validInput(), nil)

	users, err := svc.AdminListUsers(context.Background(), root)
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2 (admins excluded)", len(users))
	}
	counts := map[string]int64{}
	for _, u := range users {
		counts[u.ID] = u.IncidentCount
		if u.PasswordHash != "" {
			t.Error("password digest leaked")
		}
	}
	if counts[alice.ID] != 2 || counts[bob.ID] != 0 {
		t.Errorf("counts = %v", counts)
	}

	if _, err := svc.AdminListUsers(context.Background(), alice); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("non-admin: got %v, want ErrForbidden", err)
	}
}
