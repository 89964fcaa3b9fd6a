package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/Comcast/sonde/agent"

	"golang.org/x/net/publicsuffix"
)

type Jar struct {
	*cookiejar.Jar
	Kookies []*http.Cookie `json:"cookies"`
}

func NewJar() (*Jar, error) {
	cookieJar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &Jar{Jar: cookieJar}, nil
}

func (j *Jar) AddCookies(cs []*http.Cookie) {
	if j.Kookies == nil {
		j.Kookies = make([]*http.Cookie, 0, 2*len(cs))
	}
	j.Kookies = append(j.Kookies, cs...)
}

// HTTPRequest is a self-contained HTTP request.
type HTTPRequest struct {
	Id        string      `json:"id,omitempty"`
	Method    string      `json:"method,omitempty"`
	URL       string      `json:"url"`
	Body      string      `json:"body,omitempty"`
	Headers   http.Header `json:"headers,omitempty"`
	CookieJar *Jar        `json:"jar,omitempty"`

	Debug bool `json:"debug,omitempty"`
}

type HTTPResponse struct {
	StatusCode int          `json:"statusCode"`
	Status     string       `json:"status"`
	Error      error        `json:"error,omitempty"`
	Headers    http.Header  `json:"headers,omitempty"`
	Body       string       `json:"body,omitempty"`
	Request    *HTTPRequest `json:"request,omitempty"`
}

func (r *HTTPRequest) logf(format string, args ...interface{}) {
	if r.Debug {
		log.Printf(format, args...)
	}
}

// Do is the low-level, synchronous method to make the request and
// call the handler with the result.
func (r *HTTPRequest) Do(ctx context.Context, handler func(context.Context, *HTTPResponse) error) error {
	u, err := url.Parse(r.URL)
	if err != nil {
		return err
	}

	req := &http.Request{
		Method: r.Method,
		URL:    u,
		Header: r.Headers,
	}

	if r.Body != "" {
		req.Body = ioutil.NopCloser(bytes.NewReader([]byte(r.Body)))
	}

	// http.Request doesn't itself support CookieJars; http.Client
	// does, but we don't want a client cache, so we apply the jar
	// to the request manually.
	if r.CookieJar != nil {
		if req.Header == nil {
			req.Header = make(http.Header)
		}
		for i, cookie := range r.CookieJar.Cookies(u) {
			r.logf("adding cookie %d: %#v", i, cookie)
			req.AddCookie(cookie)
		}
	}

	req = req.WithContext(ctx)

	result := &HTTPResponse{
		Request: r,
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		r.logf("HTTPRequest.Do error %v", err)
		result.Error = err
		return handler(ctx, result)
	}

	result.Headers = resp.Header
	result.Status = resp.Status
	result.StatusCode = resp.StatusCode

	body, err := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		r.logf("HTTPRequest.Do ReadAll error %v", err)
		result.Error = err
		return handler(ctx, result)
	}
	result.Body = string(body)

	if r.CookieJar != nil {
		r.CookieJar.SetCookies(u, resp.Cookies())
		r.CookieJar.AddCookies(resp.Cookies())
	}

	return handler(ctx, result)
}

// NoticeSink POSTs agent notices to an HTTP endpoint.
type NoticeSink struct {
	URL string
	Jar *Jar

	Debug bool
}

func NewNoticeSink(url string) (*NoticeSink, error) {
	jar, err := NewJar()
	if err != nil {
		return nil, err
	}
	return &NoticeSink{
		URL: url,
		Jar: jar,
	}, nil
}

// Send posts one notice; a non-2xx status is only logged.
func (s *NoticeSink) Send(ctx context.Context, notice agent.Notice) error {
	js, err := json.Marshal(&notice)
	if err != nil {
		return err
	}

	r := &HTTPRequest{
		Method: "POST",
		URL:    s.URL,
		Body:   string(js),
		Headers: http.Header{
			"Content-Type": []string{"application/json"},
		},
		CookieJar: s.Jar,
		Debug:     s.Debug,
	}

	return r.Do(ctx, func(ctx context.Context, resp *HTTPResponse) error {
		if resp.Error != nil {
			return resp.Error
		}
		if resp.StatusCode < 200 || 300 <= resp.StatusCode {
			log.Printf("warning NoticeSink %s: %s", s.URL, resp.Status)
		}
		return nil
	})
}
