package lms_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
	"github.com/vladislavdragonenkov/coursepay/internal/lms"
)

func makeLMSUser() domain.LMSUser {
	return domain.LMSUser{
		Username:  "buyer_a1b2c3",
		Password:  "S3cret!password",
		FirstName: "Ivan",
		LastName:  "Petrov",
		Email:     "buyer@example.com",
	}
}

// newTestServer поднимает фейковую LMS, проверяющую форму запроса.
func newTestServer(t *testing.T, wantFn string, response string, capture *map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/webservice/rest/server.php", r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "test-token", r.PostForm.Get("wstoken"))
		require.Equal(t, "json", r.PostForm.Get("moodlewsrestformat"))
		require.Equal(t, wantFn, r.PostForm.Get("wsfunction"))

		if capture != nil {
			for key := range r.PostForm {
				(*capture)[key] = r.PostForm.Get(key)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
}

func TestClientSiteInfo(t *testing.T) {
	srv := newTestServer(t, "core_webservice_get_site_info",
		`{"sitename":"Acme School","release":"4.3","userid":2,"username":"wsuser"}`, nil)
	defer srv.Close()

	client := lms.NewClient(srv.URL, "test-token")
	info, err := client.SiteInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Acme School", info.SiteName)
	assert.Equal(t, int64(2), info.UserID)
}

func TestClientFindUserByEmail(t *testing.T) {
	captured := map[string]string{}
	srv := newTestServer(t, "core_user_get_users",
		`{"users":[{"id":42,"email":"buyer@example.com"}],"warnings":[]}`, &captured)
	defer srv.Close()

	client := lms.NewClient(srv.URL, "test-token")
	id, err := client.FindUserByEmail(context.Background(), "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "email", captured["criteria[0][key]"])
	assert.Equal(t, "buyer@example.com", captured["criteria[0][value]"])
}

func TestClientFindUserByEmail_Miss(t *testing.T) {
	srv := newTestServer(t, "core_user_get_users", `{"users":[],"warnings":[]}`, nil)
	defer srv.Close()

	client := lms.NewClient(srv.URL, "test-token")
	id, err := client.FindUserByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Zero(t, id)
}

func TestClientCreateUser(t *testing.T) {
	captured := map[string]string{}
	srv := newTestServer(t, "core_user_create_users",
		`[{"id":77,"username":"buyer_a1b2c3"}]`, &captured)
	defer srv.Close()

	client := lms.NewClient(srv.URL, "test-token")
	id, err := client.CreateUser(context.Background(), makeLMSUser())
	require.NoError(t, err)
	assert.Equal(t, int64(77), id)
	assert.Equal(t, "buyer_a1b2c3", captured["users[0][username]"])
	assert.Equal(t, "buyer@example.com", captured["users[0][email]"])
	assert.Equal(t, "Ivan", captured["users[0][firstname]"])
	assert.Equal(t, "Petrov", captured["users[0][lastname]"])
}

func TestClientEnrolUser(t *testing.T) {
	captured := map[string]string{}
	srv := newTestServer(t, "enrol_manual_enrol_users", `null`, &captured)
	defer srv.Close()

	client := lms.NewClient(srv.URL, "test-token")
	require.NoError(t, client.EnrolUser(context.Background(), 42, 101, 5))
	assert.Equal(t, "5", captured["enrolments[0][roleid]"])
	assert.Equal(t, "42", captured["enrolments[0][userid]"])
	assert.Equal(t, "101", captured["enrolments[0][courseid]"])
}

func TestClientListCourses(t *testing.T) {
	srv := newTestServer(t, "core_course_get_courses",
		`[{"id":1,"fullname":"Site"},{"id":101,"fullname":"Go Basics","summary":"intro"}]`, nil)
	defer srv.Close()

	client := lms.NewClient(srv.URL, "test-token")
	courses, err := client.ListCourses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, int64(101), courses[1].ID)
	assert.Equal(t, "Go Basics", courses[1].FullName)
}

func TestClientRemoteException(t *testing.T) {
	srv := newTestServer(t, "enrol_manual_enrol_users",
		`{"exception":"moodle_exception","errorcode":"invalidrecord","message":"Can't find data record in database table course."}`, nil)
	defer srv.Close()

	client := lms.NewClient(srv.URL, "test-token")
	err := client.EnrolUser(context.Background(), 42, 9999, 5)
	require.Error(t, err)
	assert.True(t, lms.IsRemoteError(err))
	assert.Contains(t, err.Error(), "Can't find data record")
}

func TestClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := lms.NewClient(srv.URL, "test-token")
	_, err := client.SiteInfo(context.Background())
	require.Error(t, err)
	assert.False(t, lms.IsRemoteError(err), "transport failure must not look like a remote rejection")
}
