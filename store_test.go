package pageuser

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test_pageuser.db")
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreateUser(t *testing.T, s *Store, email string) User {
	t.Helper()
	u, err := s.CreateUser("Test User", email, "$2a$10$fakehash")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return u
}

func TestCreateAndGetUser(t *testing.T) {
	s := setupTestStore(t)

	u := mustCreateUser(t, s, "alice@example.com")
	if u.ID == 0 {
		t.Fatal("expected non-zero user id")
	}

	byEmail, err := s.GetUserByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail.ID != u.ID || byEmail.Name != "Test User" {
		t.Errorf("got user %+v, want id=%d name=Test User", byEmail, u.ID)
	}

	byID, err := s.GetUserByID(u.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if byID.Email != "alice@example.com" {
		t.Errorf("got email %q, want alice@example.com", byID.Email)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := setupTestStore(t)

	mustCreateUser(t, s, "dup@example.com")
	if _, err := s.CreateUser("Other", "dup@example.com", "hash"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("got %v, want ErrEmailTaken", err)
	}
}

func TestGetUserNotFound(t *testing.T) {
	s := setupTestStore(t)

	if _, err := s.GetUserByEmail("nobody@example.com"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("got %v, want sql.ErrNoRows", err)
	}
}

func TestUpdateUserPassword(t *testing.T) {
	s := setupTestStore(t)

	u := mustCreateUser(t, s, "pw@example.com")
	if err := s.UpdateUserPassword(u.ID, "newhash"); err != nil {
		t.Fatalf("UpdateUserPassword failed: %v", err)
	}
	got, err := s.GetUserByID(u.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if got.Hashed != "newhash" {
		t.Errorf("got hash %q, want newhash", got.Hashed)
	}
}

func TestResetCodeConsumeOnce(t *testing.T) {
	s := setupTestStore(t)

	u := mustCreateUser(t, s, "reset@example.com")
	if err := s.CreateResetCode(u.ID, "123456", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("CreateResetCode failed: %v", err)
	}

	got, err := s.ConsumeResetCode("reset@example.com", "123456")
	if err != nil {
		t.Fatalf("ConsumeResetCode failed: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("got user %d, want %d", got.ID, u.ID)
	}

	// Second use must fail.
	if _, err := s.ConsumeResetCode("reset@example.com", "123456"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("got %v, want sql.ErrNoRows on reuse", err)
	}
}

func TestResetCodeExpired(t *testing.T) {
	s := setupTestStore(t)

	u := mustCreateUser(t, s, "expired@example.com")
	if err := s.CreateResetCode(u.ID, "654321", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("CreateResetCode failed: %v", err)
	}
	if _, err := s.ConsumeResetCode("expired@example.com", "654321"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound for expired code", err)
	}
}

func TestResetCodeReplacedByNewRequest(t *testing.T) {
	s := setupTestStore(t)

	u := mustCreateUser(t, s, "replace@example.com")
	if err := s.CreateResetCode(u.ID, "111111", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("CreateResetCode failed: %v", err)
	}
	if err := s.CreateResetCode(u.ID, "222222", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("second CreateResetCode failed: %v", err)
	}

	if _, err := s.ConsumeResetCode("replace@example.com", "111111"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("got %v, want sql.ErrNoRows for superseded code", err)
	}
	if _, err := s.ConsumeResetCode("replace@example.com", "222222"); err != nil {
		t.Fatalf("latest code should work: %v", err)
	}
}

func TestJSONConfigLifecycle(t *testing.T) {
	s := setupTestStore(t)

	u := mustCreateUser(t, s, "cfg@example.com")
	other := mustCreateUser(t, s, "other@example.com")

	cfg, err := s.SaveJSONConfig(u.ID, "restaurant", `{"site":{"site_name":"Chez Nous"}}`)
	if err != nil {
		t.Fatalf("SaveJSONConfig failed: %v", err)
	}

	list, err := s.ListJSONConfigs(u.ID)
	if err != nil {
		t.Fatalf("ListJSONConfigs failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != cfg.ID {
		t.Fatalf("got %d configs, want the saved one", len(list))
	}

	// Other users cannot see or delete it.
	if _, err := s.GetJSONConfig(cfg.ID, other.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("got %v, want sql.ErrNoRows for foreign config", err)
	}
	if err := s.DeleteJSONConfig(cfg.ID, other.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound for foreign delete", err)
	}

	got, err := s.GetJSONConfig(cfg.ID, u.ID)
	if err != nil {
		t.Fatalf("GetJSONConfig failed: %v", err)
	}
	if got.Content != `{"site":{"site_name":"Chez Nous"}}` {
		t.Errorf("content round-trip mismatch: %q", got.Content)
	}

	if err := s.DeleteJSONConfig(cfg.ID, u.ID); err != nil {
		t.Fatalf("DeleteJSONConfig failed: %v", err)
	}
	if _, err := s.GetJSONConfig(cfg.ID, u.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("got %v after delete, want sql.ErrNoRows", err)
	}
}

func TestTemplateLifecycle(t *testing.T) {
	s := setupTestStore(t)

	u := mustCreateUser(t, s, "tpl@example.com")

	tpl, err := s.CreateTemplate(u.ID, "restaurant_template_1", "/data/zips/restaurant_template_1.zip", 0)
	if err != nil {
		t.Fatalf("CreateTemplate failed: %v", err)
	}

	list, err := s.ListTemplates(u.ID)
	if err != nil {
		t.Fatalf("ListTemplates failed: %v", err)
	}
	if len(list) != 1 || list[0].FilePath != tpl.FilePath {
		t.Fatalf("got %d templates, want the created one", len(list))
	}

	count, err := s.CountTemplates(u.ID)
	if err != nil {
		t.Fatalf("CountTemplates failed: %v", err)
	}
	if count != 1 {
		t.Errorf("got count %d, want 1", count)
	}

	last, err := s.LastActivity(u.ID)
	if err != nil {
		t.Fatalf("LastActivity failed: %v", err)
	}
	if last == "" {
		t.Error("expected non-empty last activity")
	}

	deleted, err := s.DeleteTemplate(tpl.ID, u.ID)
	if err != nil {
		t.Fatalf("DeleteTemplate failed: %v", err)
	}
	if deleted.FilePath != tpl.FilePath {
		t.Errorf("deleted record path %q, want %q", deleted.FilePath, tpl.FilePath)
	}
	if _, err := s.GetTemplate(tpl.ID, u.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("got %v after delete, want sql.ErrNoRows", err)
	}
}

func TestLastActivityEmpty(t *testing.T) {
	s := setupTestStore(t)

	u := mustCreateUser(t, s, "quiet@example.com")
	last, err := s.LastActivity(u.ID)
	if err != nil {
		t.Fatalf("LastActivity failed: %v", err)
	}
	if last != "" {
		t.Errorf("got %q, want empty last activity", last)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	s := setupTestStore(t)

	u := mustCreateUser(t, s, "hist@example.com")
	for _, action := range []string{"first", "second", "third"} {
		if err := s.AddHistory(u.ID, action); err != nil {
			t.Fatalf("AddHistory failed: %v", err)
		}
	}

	entries, err := s.ListHistory(u.ID, 2)
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Action != "third" || entries[1].Action != "second" {
		t.Errorf("got order [%s %s], want [third second]", entries[0].Action, entries[1].Action)
	}
}
