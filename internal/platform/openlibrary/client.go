package openlibrary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/dukeofgo/librarius/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	RPS       float64
	// MaxBodyBytes 上游响应体上限，默认 4MB
	MaxBodyBytes int64
}

// Client Open Library brief API；超时与其它错误都直接返回，不重试
type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
	maxBody    int64
}

func NewClient(o Options) *Client {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 4 << 20
	}
	if o.BaseURL == "" {
		o.BaseURL = "http://openlibrary.org"
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if o.RPS > 0 {
		lim = rate.NewLimiter(rate.Limit(o.RPS), 1)
	}
	return &Client{
		httpClient: &http.Client{Timeout: o.Timeout},
		userAgent:  o.UserAgent,
		baseURL:    strings.TrimRight(o.BaseURL, "/"),
		limiter:    lim,
		maxBody:    o.MaxBodyBytes,
	}
}

// Record 映射到 Book 的书目字段
type Record struct {
	ISBN          string `json:"isbn"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	Edition       string `json:"edition"`
	Publisher     string `json:"publisher"`
	PublishDate   string `json:"publish_date"`
	PublishPlace  string `json:"publish_place"`
	NumberOfPages *int   `json:"number_of_pages"`
	Description   string `json:"description"`
	Language      string `json:"language"`
	LCCN          string `json:"lccn"`
	Subtitle      string `json:"subtitle"`
	Subjects      string `json:"subjects"`
}

// textValue 兼容 "xxx" 和 {"type": "/type/text", "value": "xxx"}
type textValue string

func (t *textValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = textValue(s)
		return nil
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*t = textValue(obj.Value)
	return nil
}

type named struct {
	Name string `json:"name"`
}

type briefRecord struct {
	ISBNs        []string `json:"isbns"`
	LCCNs        []string `json:"lccns"`
	PublishDates []string `json:"publishDates"`
	Data         struct {
		Title         string  `json:"title"`
		Subtitle      string  `json:"subtitle"`
		Authors       []named `json:"authors"`
		Publishers    []named `json:"publishers"`
		NumberOfPages *int    `json:"number_of_pages"`
	} `json:"data"`
	Details struct {
		Details struct {
			EditionName    string    `json:"edition_name"`
			PublishCountry string    `json:"publish_country"`
			Description    textValue `json:"description"`
			Languages      []struct {
				Key string `json:"key"`
			} `json:"languages"`
			Subjects []textValue `json:"subjects"`
		} `json:"details"`
	} `json:"details"`
}

func first[T any](xs []T) T {
	var zero T
	if len(xs) == 0 {
		return zero
	}
	return xs[0]
}

var titleCaser = cases.Title(language.Und)

func (r *briefRecord) toRecord(isbn string) Record {
	d := r.Details.Details
	return Record{
		ISBN:          isbn,
		Title:         titleCaser.String(r.Data.Title),
		Author:        first(r.Data.Authors).Name,
		Edition:       d.EditionName,
		Publisher:     first(r.Data.Publishers).Name,
		PublishDate:   first(r.PublishDates),
		PublishPlace:  strings.TrimSpace(d.PublishCountry),
		NumberOfPages: r.Data.NumberOfPages,
		Description:   string(d.Description),
		Language:      first(d.Languages).Key,
		LCCN:          first(r.LCCNs),
		Subtitle:      r.Data.Subtitle,
		Subjects:      string(first(d.Subjects)),
	}
}

// LookupISBN 取 records 中的第一条；请求的 isbn 必须出现在该记录的 isbns 里
func (c *Client) LookupISBN(ctx context.Context, isbn string) (*Record, error) {
	u := fmt.Sprintf("%s/api/volumes/brief/isbn/%s.json", c.baseURL, url.PathEscape(isbn))
	body, err := c.rawGet(ctx, u)
	if err != nil {
		return nil, err
	}

	rec, ok, err := firstRecord(body)
	if err != nil {
		return nil, &domain.UpstreamError{Op: "decode", Err: err}
	}
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	if !slices.Contains(rec.ISBNs, isbn) {
		return nil, fmt.Errorf("%w: %s not listed on record", domain.ErrRecordNotFound, isbn)
	}
	out := rec.toRecord(isbn)
	if out.Title == "" || out.Author == "" {
		return nil, fmt.Errorf("%w: record for %s has no title or author", domain.ErrRecordNotFound, isbn)
	}
	return &out, nil
}

// firstRecord 按出现顺序读 records 的第一项（map 解码会丢顺序）
func firstRecord(body []byte) (*briefRecord, bool, error) {
	iter := jsoniter.ParseBytes(json, body)
	if iter.WhatIsNext() != jsoniter.ObjectValue {
		// 查不到时 API 返回 []
		iter.Skip()
		return nil, false, iter.Error
	}
	var rec *briefRecord
	iter.ReadMapCB(func(it *jsoniter.Iterator, field string) bool {
		if field != "records" || it.WhatIsNext() != jsoniter.ObjectValue {
			it.Skip()
			return true
		}
		it.ReadMapCB(func(it *jsoniter.Iterator, _ string) bool {
			if rec != nil {
				it.Skip()
				return true
			}
			rec = new(briefRecord)
			it.ReadVal(rec)
			return true
		})
		return true
	})
	if iter.Error != nil && iter.Error != io.EOF {
		return nil, false, iter.Error
	}
	return rec, rec != nil, nil
}

func (c *Client) rawGet(ctx context.Context, u string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, upstreamErr("rate limit", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, upstreamErr("get", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrRecordNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.UpstreamError{Op: "get", Err: fmt.Errorf("unexpected status code: %d", resp.StatusCode)}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, upstreamErr("read", err)
	}
	if int64(len(b)) > c.maxBody {
		return nil, &domain.UpstreamError{Op: "read", Err: fmt.Errorf("response body exceeds %d bytes", c.maxBody)}
	}
	return b, nil
}

func upstreamErr(op string, err error) error {
	var ne net.Error
	timeout := errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout())
	return &domain.UpstreamError{Op: op, Timeout: timeout, Err: err}
}
