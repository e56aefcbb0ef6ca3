// Package lms реализует тонкий RPC-адаптер к web-service протоколу
// Moodle-совместимой LMS: каждая операция — это form-encoded POST на один
// endpoint с именем функции, параметрами и токеном, ответ — JSON.
package lms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
)

const (
	endpointPath   = "/webservice/rest/server.php"
	defaultTimeout = 30 * time.Second

	fnSiteInfo    = "core_webservice_get_site_info"
	fnGetUsers    = "core_user_get_users"
	fnCreateUsers = "core_user_create_users"
	fnEnrolUsers  = "enrol_manual_enrol_users"
	fnGetCourses  = "core_course_get_courses"
)

// Error — ошибка, которую LMS вернула осознанно: запрос дошёл и был
// отклонён. Отличается от транспортных ошибок, которые возвращаются как есть.
type Error struct {
	Exception string
	Code      string
	Message   string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("lms: %s", e.Message)
	}
	return fmt.Sprintf("lms: %s (%s)", e.Exception, e.Code)
}

// IsRemoteError проверяет, является ли ошибка отказом самой LMS.
func IsRemoteError(err error) bool {
	var lmsErr *Error
	return errors.As(err, &lmsErr)
}

// Client — stateless клиент одного арендатора; создаётся на каждую операцию.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *log.Entry
}

// Option настраивает клиента.
type Option func(*Client)

// WithHTTPClient подменяет HTTP-клиент (для тестов и нестандартных таймаутов).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient создаёт клиента LMS для заданной площадки.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     log.WithField("component", "lms-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Factory возвращает фабрику клиентов для внедрения в сагу:
// конфигурация арендатора перечитывается на каждую операцию.
func Factory(opts ...Option) domain.LMSFactory {
	return func(baseURL, token string) domain.LMSService {
		return NewClient(baseURL, token, opts...)
	}
}

// SiteInfo проверяет связность и валидность токена.
func (c *Client) SiteInfo(ctx context.Context) (domain.LMSSiteInfo, error) {
	var resp struct {
		SiteName string `json:"sitename"`
		Release  string `json:"release"`
		UserID   int64  `json:"userid"`
		Username string `json:"username"`
	}
	if err := c.call(ctx, fnSiteInfo, nil, &resp); err != nil {
		return domain.LMSSiteInfo{}, err
	}
	return domain.LMSSiteInfo{
		SiteName: resp.SiteName,
		Release:  resp.Release,
		UserID:   resp.UserID,
		Username: resp.Username,
	}, nil
}

// FindUserByEmail возвращает id первого пользователя с таким email или 0.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (int64, error) {
	params := url.Values{}
	params.Set("criteria[0][key]", "email")
	params.Set("criteria[0][value]", email)

	var resp struct {
		Users []struct {
			ID int64 `json:"id"`
		} `json:"users"`
	}
	if err := c.call(ctx, fnGetUsers, params, &resp); err != nil {
		return 0, err
	}
	if len(resp.Users) == 0 {
		return 0, nil
	}
	return resp.Users[0].ID, nil
}

// CreateUser заводит учётную запись и возвращает её id.
func (c *Client) CreateUser(ctx context.Context, user domain.LMSUser) (int64, error) {
	params := url.Values{}
	params.Set("users[0][username]", user.Username)
	params.Set("users[0][password]", user.Password)
	params.Set("users[0][firstname]", user.FirstName)
	params.Set("users[0][lastname]", user.LastName)
	params.Set("users[0][email]", user.Email)

	var resp []struct {
		ID int64 `json:"id"`
	}
	if err := c.call(ctx, fnCreateUsers, params, &resp); err != nil {
		return 0, err
	}
	if len(resp) == 0 {
		return 0, fmt.Errorf("lms: create user returned empty response")
	}
	return resp[0].ID, nil
}

// EnrolUser вручную зачисляет пользователя на курс.
func (c *Client) EnrolUser(ctx context.Context, userID, courseID, roleID int64) error {
	params := url.Values{}
	params.Set("enrolments[0][roleid]", strconv.FormatInt(roleID, 10))
	params.Set("enrolments[0][userid]", strconv.FormatInt(userID, 10))
	params.Set("enrolments[0][courseid]", strconv.FormatInt(courseID, 10))

	// Успешный ответ LMS на зачисление — null, тело не разбираем.
	return c.call(ctx, fnEnrolUsers, params, nil)
}

// ListCourses возвращает все курсы площадки.
func (c *Client) ListCourses(ctx context.Context) ([]domain.LMSCourse, error) {
	var resp []struct {
		ID       int64  `json:"id"`
		FullName string `json:"fullname"`
		Summary  string `json:"summary"`
	}
	if err := c.call(ctx, fnGetCourses, nil, &resp); err != nil {
		return nil, err
	}

	courses := make([]domain.LMSCourse, 0, len(resp))
	for _, c := range resp {
		courses = append(courses, domain.LMSCourse{
			ID:       c.ID,
			FullName: c.FullName,
			Summary:  c.Summary,
		})
	}
	return courses, nil
}

// call выполняет один RPC-вызов: токен и имя функции добавляются к параметрам,
// ответ проверяется на маркер exception до разбора в out.
func (c *Client) call(ctx context.Context, wsfunction string, params url.Values, out any) error {
	form := url.Values{}
	form.Set("wstoken", c.token)
	form.Set("wsfunction", wsfunction)
	form.Set("moodlewsrestformat", "json")
	for key, values := range params {
		for _, v := range values {
			form.Add(key, v)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpointPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build lms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call lms %s: %w", wsfunction, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read lms response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lms %s: unexpected status %d", wsfunction, resp.StatusCode)
	}

	if err := checkException(body); err != nil {
		c.logger.WithError(err).WithField("wsfunction", wsfunction).Debug("lms rejected call")
		return err
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 || string(bytes.TrimSpace(body)) == "null" {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode lms %s response: %w", wsfunction, err)
	}
	return nil
}

// checkException распознаёт маркер exception в JSON-объекте ответа.
// Массивы и скаляры маркера содержать не могут.
func checkException(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}

	var probe struct {
		Exception string `json:"exception"`
		ErrorCode string `json:"errorcode"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		// Не объект с известными полями — пусть разбор out решает.
		return nil
	}
	if probe.Exception == "" {
		return nil
	}
	return &Error{
		Exception: probe.Exception,
		Code:      probe.ErrorCode,
		Message:   probe.Message,
	}
}

var _ domain.LMSService = (*Client)(nil)
