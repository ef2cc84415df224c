// Package tinkofftest provides an in-process stand-in for the bank API.
//
// The server speaks the same wire contract as the real service: every method
// lives at POST /v1/{method}, identity travels in the sessionid and wuid query
// parameters and answers are {resultCode, plainMessage, payload} envelopes.
// Sessions move from anonymous to logged in (sign_up or confirm) to elevated
// (level_up); privileged methods refuse to answer below elevated.
package tinkofftest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"

	"github.com/gin-gonic/gin"
)

// Result codes of the envelope
const (
	ResultOK                     = "OK"
	ResultInvalidRequestData     = "INVALID_REQUEST_DATA"
	ResultWaitingConfirmation    = "WAITING_CONFIRMATION"
	ResultInsufficientPrivileges = "INSUFFICIENT_PRIVILEGES"
)

type level int

const (
	levelAnonymous level = iota
	levelLoggedIn
	levelElevated
)

func (l level) String() string {
	switch l {
	case levelLoggedIn:
		return "CANDIDATE"
	case levelElevated:
		return "CLIENT"
	default:
		return "ANONYMOUS"
	}
}

// Config seeds the server
type Config struct {
	WebUserID string
	SessionID string

	Username string
	Password string

	// RequireConfirmation makes sign_up answer WAITING_CONFIRMATION.
	RequireConfirmation bool
	Operation           string
	Ticket              string
	Code                string

	// Payloads of the privileged methods.
	Accounts     any
	PersonalInfo any
}

// Response forces the envelope of a method
type Response struct {
	Status       int
	ResultCode   string
	PlainMessage string
	Payload      any
	// Extra fields merged into the envelope.
	Extra map[string]any
}

// Call records one request received by the server
type Call struct {
	Method string
	Query  url.Values
	Form   url.Values
}

type sessionState struct {
	webUserID string
	level     level
	pending   bool
}

// Server is a running stub
type Server struct {
	*httptest.Server

	cfg Config

	mu        sync.Mutex
	calls     []Call
	sessions  map[string]*sessionState
	overrides map[string]Response
}

// NewServer starts a stub seeded with cfg. Zero fields get defaults.
// Callers must Close it.
func NewServer(cfg Config) *Server {
	if cfg.WebUserID == "" {
		cfg.WebUserID = "W1"
	}
	if cfg.SessionID == "" {
		cfg.SessionID = "S1"
	}
	if cfg.Username == "" {
		cfg.Username = "u"
	}
	if cfg.Password == "" {
		cfg.Password = "p"
	}
	if cfg.Operation == "" {
		cfg.Operation = "sign_up"
	}
	if cfg.Ticket == "" {
		cfg.Ticket = "T1"
	}
	if cfg.Code == "" {
		cfg.Code = "123456"
	}
	if cfg.Accounts == nil {
		cfg.Accounts = []any{}
	}
	if cfg.PersonalInfo == nil {
		cfg.PersonalInfo = map[string]any{}
	}

	s := &Server{
		cfg:       cfg,
		sessions:  make(map[string]*sessionState),
		overrides: make(map[string]Response),
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/v1/:method", s.handle)
	return router
}

// Override makes method always answer r
func (s *Server) Override(method string, r Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[method] = r
}

// Calls returns every call received so far
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the calls received for method
func (s *Server) CallsTo(method string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// AccessLevel returns the access level of a session
func (s *Server) AccessLevel(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.sessions[sessionID]; ok {
		return st.level.String()
	}
	return levelAnonymous.String()
}

type handlerFunc func(call Call, st *sessionState) Response

func (s *Server) handle(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, "bad form")
		return
	}

	call := Call{
		Method: c.Param("method"),
		Query:  c.Request.URL.Query(),
		Form:   c.Request.PostForm,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, call)

	if r, ok := s.overrides[call.Method]; ok {
		s.write(c, r)
		return
	}

	handlers := map[string]handlerFunc{
		"webuser":        s.webUser,
		"session":        s.session,
		"sign_up":        s.signUp,
		"confirm":        s.confirm,
		"level_up":       s.levelUp,
		"session_status": s.status,
		"ping":           s.status,
		"warmup_cache":   s.warmUpCache,
		"personal_info":  s.privileged(func() any { return s.cfg.PersonalInfo }),
		"accounts_flat":  s.privileged(func() any { return s.cfg.Accounts }),
	}

	h, ok := handlers[call.Method]
	if !ok {
		c.String(http.StatusNotFound, "404 page not found")
		return
	}

	s.write(c, h(call, s.sessions[call.Query.Get("sessionid")]))
}

func (s *Server) write(c *gin.Context, r Response) {
	body := gin.H{"resultCode": r.ResultCode}
	if r.PlainMessage != "" {
		body["plainMessage"] = r.PlainMessage
	}
	if r.Payload != nil {
		body["payload"] = r.Payload
	}
	for k, v := range r.Extra {
		body[k] = v
	}

	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, body)
}

func (s *Server) webUser(call Call, _ *sessionState) Response {
	return Response{ResultCode: ResultOK, Payload: gin.H{"wuid": s.cfg.WebUserID}}
}

func (s *Server) session(call Call, st *sessionState) Response {
	if st == nil {
		s.sessions[s.cfg.SessionID] = &sessionState{webUserID: call.Query.Get("wuid")}
	}
	return Response{ResultCode: ResultOK, Payload: s.cfg.SessionID}
}

func (s *Server) signUp(call Call, st *sessionState) Response {
	if st == nil {
		return Response{ResultCode: ResultInvalidRequestData, PlainMessage: "unknown session"}
	}
	if call.Form.Get("fingerprint") == "" {
		return Response{ResultCode: ResultInvalidRequestData, PlainMessage: "missing fingerprint"}
	}
	if call.Form.Get("username") != s.cfg.Username || call.Form.Get("password") != s.cfg.Password {
		return Response{ResultCode: ResultInvalidRequestData, PlainMessage: "wrong username or password"}
	}

	if s.cfg.RequireConfirmation {
		st.pending = true
		return Response{
			ResultCode: ResultWaitingConfirmation,
			Extra: map[string]any{
				"initialOperation": s.cfg.Operation,
				"operationTicket":  s.cfg.Ticket,
				"confirmations":    []string{"SMSBYID"},
			},
		}
	}

	st.level = levelLoggedIn
	return Response{ResultCode: ResultOK, Payload: gin.H{"accessLevel": st.level.String()}}
}

func (s *Server) confirm(call Call, st *sessionState) Response {
	if st == nil || !st.pending {
		return Response{ResultCode: ResultInvalidRequestData, PlainMessage: "nothing to confirm"}
	}
	if call.Form.Get("initialOperation") != s.cfg.Operation || call.Form.Get("initialOperationTicket") != s.cfg.Ticket {
		return Response{ResultCode: ResultInvalidRequestData, PlainMessage: "unknown operation ticket"}
	}

	var data map[string]string
	if err := json.Unmarshal([]byte(call.Form.Get("confirmationData")), &data); err != nil || data["SMSBYID"] != s.cfg.Code {
		return Response{ResultCode: ResultInvalidRequestData, PlainMessage: "wrong confirmation code"}
	}

	st.pending = false
	st.level = levelLoggedIn
	return Response{ResultCode: ResultOK, Payload: gin.H{"accessLevel": st.level.String()}}
}

func (s *Server) levelUp(call Call, st *sessionState) Response {
	if st == nil || st.level < levelLoggedIn {
		return Response{ResultCode: ResultInsufficientPrivileges}
	}
	st.level = levelElevated
	return Response{ResultCode: ResultOK, Payload: gin.H{"accessLevel": st.level.String()}}
}

func (s *Server) status(call Call, st *sessionState) Response {
	lvl := levelAnonymous
	if st != nil {
		lvl = st.level
	}
	return Response{ResultCode: ResultOK, Payload: gin.H{"accessLevel": lvl.String(), "millisLeft": 300000}}
}

func (s *Server) warmUpCache(call Call, st *sessionState) Response {
	return Response{ResultCode: ResultOK}
}

func (s *Server) privileged(payload func() any) handlerFunc {
	return func(call Call, st *sessionState) Response {
		if st == nil || st.level < levelElevated {
			return Response{ResultCode: ResultInsufficientPrivileges}
		}
		return Response{ResultCode: ResultOK, Payload: payload()}
	}
}
