package web

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wikisyllabus/wikisyllabus/internal/database"
	"github.com/wikisyllabus/wikisyllabus/internal/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, *database.DB) {
	t.Helper()
	return newTestServerMode(t, true)
}

func newTestServerMode(t *testing.T, isDev bool) (*httptest.Server, *database.DB) {
	t.Helper()

	tmp := t.TempDir()
	db, err := database.New(filepath.Join(tmp, "test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	uploads, err := storage.New(filepath.Join(tmp, "uploads"))
	if err != nil {
		t.Fatalf("failed to create upload store: %v", err)
	}

	server := NewServer(db, uploads, 0, "", isDev)
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return ts, db
}

// newClient returns a cookie-keeping client that does not follow
// redirects, so tests can assert on redirect targets.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postForm(t *testing.T, client *http.Client, url string, form url.Values) *http.Response {
	t.Helper()
	resp, err := client.Post(url, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	resp.Body.Close()
	return resp
}

func get(t *testing.T, client *http.Client, url string) (*http.Response, string) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return resp, string(body)
}

func assertRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303 redirect, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != location {
		t.Fatalf("expected redirect to %q, got %q", location, got)
	}
}

// registerAndLogin creates an account through the HTTP surface and logs
// the client in, leaving the session cookie in its jar.
func registerAndLogin(t *testing.T, client *http.Client, base, username, email, role string) {
	t.Helper()

	resp := postForm(t, client, base+"/register", url.Values{
		"username": {username},
		"email":    {email},
		"password": {"correct horse"},
		"role":     {role},
	})
	assertRedirect(t, resp, "/login")

	resp = postForm(t, client, base+"/login", url.Values{
		"email":    {email},
		"password": {"correct horse"},
	})
	assertRedirect(t, resp, "/dashboard")
}

func TestDashboard_RequiresLogin(t *testing.T) {
	ts, _ := newTestServer(t)
	client := newClient(t)

	resp, _ := get(t, client, ts.URL+"/dashboard")
	assertRedirect(t, resp, "/login")
}

func TestFlashCookie_SecureOutsideDev(t *testing.T) {
	ts, _ := newTestServerMode(t, false)
	client := newClient(t)

	resp, _ := get(t, client, ts.URL+"/dashboard")
	assertRedirect(t, resp, "/login")

	var flash *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "flash_err" {
			flash = c
		}
	}
	if flash == nil {
		t.Fatal("no flash_err cookie set on login redirect")
	}
	if !flash.Secure {
		t.Error("flash_err cookie is not Secure")
	}
	if flash.SameSite != http.SameSiteStrictMode {
		t.Errorf("flash_err SameSite = %v, want Strict", flash.SameSite)
	}
}

func TestStudent_CanViewDashboard(t *testing.T) {
	ts, _ := newTestServer(t)
	client := newClient(t)

	registerAndLogin(t, client, ts.URL, "alice", "a@x.com", "student")

	resp, body := get(t, client, ts.URL+"/dashboard")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from dashboard, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Subjects") {
		t.Errorf("expected subject catalog in dashboard body")
	}
}

func TestStudent_CannotMutate(t *testing.T) {
	ts, _ := newTestServer(t)
	client := newClient(t)

	registerAndLogin(t, client, ts.URL, "alice", "a@x.com", "student")

	// Every teacher-only route must bounce to the dashboard, not login
	resp, _ := get(t, client, ts.URL+"/admin")
	assertRedirect(t, resp, "/dashboard")

	resp = postForm(t, client, ts.URL+"/admin/subject/add", url.Values{
		"subject_name":    {"Algorithms"},
		"university_name": {"X"},
		"stream_name":     {"CS"},
		"semester_number": {"3"},
	})
	assertRedirect(t, resp, "/dashboard")

	resp = postForm(t, client, ts.URL+"/admin/subject/1/manage", url.Values{"module_title": {"Graphs"}})
	assertRedirect(t, resp, "/dashboard")

	resp = postForm(t, client, ts.URL+"/admin/module/1/content", url.Values{"content_data": {"hi"}})
	assertRedirect(t, resp, "/dashboard")

	resp = postForm(t, client, ts.URL+"/admin/module/1/task", url.Values{"task_description": {"do it"}})
	assertRedirect(t, resp, "/dashboard")
}

func TestTeacher_CreateSubjectReusesReferenceData(t *testing.T) {
	ts, db := newTestServer(t)
	client := newClient(t)

	registerAndLogin(t, client, ts.URL, "teach", "t@x.com", "teacher")

	form := url.Values{
		"subject_name":    {"Algorithms"},
		"university_name": {"X"},
		"stream_name":     {"CS"},
		"semester_number": {"3"},
	}
	resp := postForm(t, client, ts.URL+"/admin/subject/add", form)
	assertRedirect(t, resp, "/admin")

	form.Set("subject_name", "Databases")
	resp = postForm(t, client, ts.URL+"/admin/subject/add", form)
	assertRedirect(t, resp, "/admin")

	for _, table := range []string{"universities", "streams", "semesters"} {
		var n int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			t.Fatalf("failed to count %s: %v", table, err)
		}
		if n != 1 {
			t.Errorf("expected 1 row in %s after two subjects, got %d", table, n)
		}
	}
}

func TestTeacher_CannotManageForeignSubject(t *testing.T) {
	ts, db := newTestServer(t)

	owner := newClient(t)
	registerAndLogin(t, owner, ts.URL, "owner", "owner@x.com", "teacher")
	resp := postForm(t, owner, ts.URL+"/admin/subject/add", url.Values{
		"subject_name":    {"Algorithms"},
		"university_name": {"X"},
		"stream_name":     {"CS"},
		"semester_number": {"3"},
	})
	assertRedirect(t, resp, "/admin")

	ownerUser, err := db.GetUserByEmail("owner@x.com")
	if err != nil || ownerUser == nil {
		t.Fatalf("failed to load owner: %v", err)
	}
	subjects, err := db.ListSubjectsByTeacher(ownerUser.ID)
	if err != nil || len(subjects) != 1 {
		t.Fatalf("expected 1 owned subject, got %v (%v)", subjects, err)
	}
	manageURL := fmt.Sprintf("%s/admin/subject/%d/manage", ts.URL, subjects[0].ID)

	// The owner reaches the manage page
	resp, _ = get(t, owner, manageURL)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for owner, got %d", resp.StatusCode)
	}

	// Another teacher is bounced to their own admin dashboard
	intruder := newClient(t)
	registerAndLogin(t, intruder, ts.URL, "intruder", "i@x.com", "teacher")

	resp, _ = get(t, intruder, manageURL)
	assertRedirect(t, resp, "/admin")

	resp = postForm(t, intruder, manageURL, url.Values{"module_title": {"Hijacked"}})
	assertRedirect(t, resp, "/admin")

	modules, err := db.ListModulesBySubject(subjects[0].ID)
	if err != nil {
		t.Fatalf("failed to list modules: %v", err)
	}
	if len(modules) != 0 {
		t.Errorf("expected no modules after forbidden attempt, got %+v", modules)
	}
}

func TestSubmitProof_MarksTaskSubmittedPerUser(t *testing.T) {
	ts, db := newTestServer(t)

	// Seed a subject, module and task directly
	teacher, err := db.CreateUser("teach", "t@x.com", "hash", database.RoleTeacher)
	if err != nil {
		t.Fatalf("failed to create teacher: %v", err)
	}
	uniID, _ := db.ResolveUniversity("X")
	streamID, _ := db.ResolveStream("CS")
	semID, _ := db.ResolveSemester(3)
	subject, err := db.CreateSubject("Algorithms", uniID, streamID, semID, teacher.ID)
	if err != nil {
		t.Fatalf("failed to create subject: %v", err)
	}
	module, err := db.CreateModule(subject.ID, "Graphs")
	if err != nil {
		t.Fatalf("failed to create module: %v", err)
	}
	if err := db.AddTask(module.ID, "Implement BFS"); err != nil {
		t.Fatalf("failed to add task: %v", err)
	}
	tasks, err := db.ListTasksByModule(module.ID)
	if err != nil || len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %v (%v)", tasks, err)
	}

	alice := newClient(t)
	registerAndLogin(t, alice, ts.URL, "alice", "a@x.com", "student")

	// Multipart upload of the proof file
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("proof", "bfs.pdf")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	fw.Write([]byte("my solution"))
	mw.WriteField("comments", "done")
	mw.Close()

	submitURL := fmt.Sprintf("%s/task/%d/submit", ts.URL, tasks[0].ID)
	req, err := http.NewRequest(http.MethodPost, submitURL, &buf)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := alice.Do(req)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	resp.Body.Close()
	assertRedirect(t, resp, fmt.Sprintf("/module/%d", module.ID))

	moduleURL := fmt.Sprintf("%s/module/%d", ts.URL, module.ID)
	resp, body := get(t, alice, moduleURL)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from module page, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Submitted") {
		t.Error("expected task to be marked submitted for alice")
	}

	// A second student does not see alice's submission
	bob := newClient(t)
	registerAndLogin(t, bob, ts.URL, "bob", "b@x.com", "student")
	resp, body = get(t, bob, moduleURL)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from module page, got %d", resp.StatusCode)
	}
	if strings.Contains(body, "Submitted") {
		t.Error("did not expect task to be marked submitted for bob")
	}
}

func TestSubjectPage_UnknownID(t *testing.T) {
	ts, _ := newTestServer(t)
	client := newClient(t)
	registerAndLogin(t, client, ts.URL, "alice", "a@x.com", "student")

	resp, _ := get(t, client, ts.URL+"/subject/9999")
	assertRedirect(t, resp, "/dashboard")

	resp, _ = get(t, client, ts.URL+"/module/9999")
	assertRedirect(t, resp, "/dashboard")

	resp, _ = get(t, client, ts.URL+"/task/9999/submit")
	assertRedirect(t, resp, "/dashboard")
}

func TestRegister_DuplicateEmailBouncesBack(t *testing.T) {
	ts, db := newTestServer(t)
	client := newClient(t)

	form := url.Values{
		"username": {"alice"},
		"email":    {"a@x.com"},
		"password": {"correct horse"},
		"role":     {"student"},
	}
	resp := postForm(t, client, ts.URL+"/register", form)
	assertRedirect(t, resp, "/login")

	resp = postForm(t, client, ts.URL+"/register", form)
	assertRedirect(t, resp, "/register")

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		t.Fatalf("failed to count users: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 user after duplicate registration, got %d", n)
	}
}
