// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package amstest provides an in-memory media service for tests.
package amstest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/mediaservices/internal/odata"
)

// APIRoot is the path prefix the mock serves the API under.
const APIRoot = "/api/"

// Request is a captured request.
type Request struct {
	Method string
	// Path is the decoded resource path relative to the API root.
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

type failure struct {
	remaining  int
	status     int
	retryAfter string
}

type table struct {
	order []string
	rows  map[string]map[string]any
}

type operation struct {
	id        string
	target    string
	remaining int
	failCode  string
	failMsg   string
}

// MockServer provides a configurable media service mock for testing.
type MockServer struct {
	*httptest.Server
	mu sync.Mutex

	roots       []string
	redirectTo  string
	sets        map[string]*table
	links       map[string][]string
	ops         map[string]*operation
	async       map[string]bool
	failures    map[string]*failure
	requests    []Request
	pageSize    int
	opPolls     int
	failNextOp  *operation
	protection  string
	deliveryURL string
	fileInfos   []string
	nextID      int
}

// NewMockServer starts a mock with Channels, Origins and StreamingEndpoints
// answering asynchronously.
func NewMockServer() *MockServer {
	m := &MockServer{
		roots:       []string{APIRoot},
		sets:        make(map[string]*table),
		links:       make(map[string][]string),
		ops:         make(map[string]*operation),
		failures:    make(map[string]*failure),
		deliveryURL: "https://keydelivery.mock/",
		async: map[string]bool{
			"Channels":           true,
			"Origins":            true,
			"StreamingEndpoints": true,
		},
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.serve))
	return m
}

// URL of the API root.
func (m *MockServer) APIURL() string { return m.Server.URL + APIRoot }

// SetAsync toggles whether mutations on set answer 202 with an operation.
func (m *MockServer) SetAsync(set string, async bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.async[set] = async
}

// SetOperationPolls sets how many polls report InProgress before an
// operation completes.
func (m *MockServer) SetOperationPolls(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opPolls = n
}

// FailNextOperation makes the next operation end in Failed.
func (m *MockServer) FailNextOperation(code, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNextOp = &operation{failCode: code, failMsg: message}
}

// SetPageSize splits list responses into pages joined by next links.
func (m *MockServer) SetPageSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageSize = n
}

// SetFailures answers the next count requests matching "METHOD Set" with
// status. retryAfter, when set, is sent as Retry-After.
func (m *MockServer) SetFailures(key string, count, status int, retryAfter string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[key] = &failure{remaining: count, status: status, retryAfter: retryAfter}
}

// SetRedirect moves the API to root. The next request under the old root
// receives a 301 pointing at the new location.
func (m *MockServer) SetRedirect(root string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	m.redirectTo = root
	m.roots = append(m.roots, root)
}

// SetProtectionCertificate sets the base64 certificate GetProtectionKey returns.
func (m *MockServer) SetProtectionCertificate(cert string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.protection = cert
}

// Seed stores an entity directly. It returns the entity id.
func (m *MockServer) Seed(set string, entity map[string]any) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(set, entity)
}

// Entity returns a copy of a stored entity.
func (m *MockServer) Entity(set, id string) (map[string]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.sets[set]
	if !ok {
		return nil, false
	}
	row, ok := t.rows[id]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out, true
}

// Count returns the number of stored entities in set.
func (m *MockServer) Count(set string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.sets[set]; ok {
		return len(t.rows)
	}
	return 0
}

// Links returns the link targets of Set('id')/nav.
func (m *MockServer) Links(set, id, nav string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.links[linkKey(set, id, nav)]...)
}

// FileInfos returns the asset ids CreateFileInfos was called for.
func (m *MockServer) FileInfos() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.fileInfos...)
}

// Requests returns every captured request.
func (m *MockServer) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// RequestCount counts captured requests with method whose path starts with prefix.
func (m *MockServer) RequestCount(method, prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.requests {
		if r.Method == method && strings.HasPrefix(r.Path, prefix) {
			n++
		}
	}
	return n
}

func (m *MockServer) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	m.mu.Lock()
	defer m.mu.Unlock()

	escaped := r.URL.EscapedPath()
	var root string
	for _, candidate := range m.roots {
		if strings.HasPrefix(escaped, candidate) {
			root = candidate
		}
	}
	if root == "" {
		writeError(w, http.StatusNotFound, "ResourceNotFound", "unknown root")
		return
	}
	rel := strings.TrimPrefix(escaped, root)

	if m.redirectTo != "" && root == APIRoot {
		target := m.Server.URL + m.redirectTo + rel
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		m.redirectTo = ""
		m.roots = m.roots[1:]
		w.Header().Set("Location", target)
		w.WriteHeader(http.StatusMovedPermanently)
		return
	}

	segments := splitPath(rel)
	m.requests = append(m.requests, Request{
		Method: r.Method,
		Path:   strings.Join(segments, "/"),
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	if len(segments) == 0 {
		writeError(w, http.StatusNotFound, "ResourceNotFound", "empty path")
		return
	}

	set, id, keyed := odata.ParseEntityPath(segments[0])
	if f := m.failures[r.Method+" "+set]; f != nil && f.remaining > 0 {
		f.remaining--
		if f.retryAfter != "" {
			w.Header().Set("Retry-After", f.retryAfter)
		}
		writeError(w, f.status, "InjectedFailure", fmt.Sprintf("injected %d", f.status))
		return
	}

	switch {
	case !keyed:
		m.serveSet(w, r, set, body)
	case len(segments) == 1:
		m.serveEntity(w, r, set, id, body)
	case segments[1] == "$links" && len(segments) == 3:
		m.serveLinks(w, r, set, id, segments[2], body)
	default:
		m.serveNavigation(w, r, set, id, segments[1], body)
	}
}

func (m *MockServer) serveSet(w http.ResponseWriter, r *http.Request, set string, body []byte) {
	switch {
	case set == "CreateFileInfos" && r.Method == http.MethodPost:
		_, assetID, _ := odata.ParseEntityPath("x(" + r.URL.Query().Get("assetid") + ")")
		m.fileInfos = append(m.fileInfos, assetID)
		w.WriteHeader(http.StatusNoContent)
	case set == "GetProtectionKeyId" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"value": "pk-" + r.URL.Query().Get("contentKeyType")})
	case set == "GetProtectionKey" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"value": m.protection})
	case r.Method == http.MethodGet:
		m.list(w, r, set, m.rowsOf(set))
	case r.Method == http.MethodPost:
		var entity map[string]any
		if err := json.Unmarshal(body, &entity); err != nil {
			writeError(w, http.StatusBadRequest, "BadRequest", err.Error())
			return
		}
		id := m.insert(set, entity)
		row := m.sets[set].rows[id]
		if m.async[set] {
			m.accept(w, id, row)
			return
		}
		writeJSON(w, http.StatusCreated, row)
	default:
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", r.Method)
	}
}

func (m *MockServer) serveEntity(w http.ResponseWriter, r *http.Request, set, id string, body []byte) {
	if set == "Operations" {
		m.poll(w, id)
		return
	}
	t := m.sets[set]
	if t == nil || t.rows[id] == nil {
		writeError(w, http.StatusNotFound, "ResourceNotFound", fmt.Sprintf("%s('%s') not found", set, id))
		return
	}
	row := t.rows[id]
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, row)
	case odata.MethodMerge:
		var patch map[string]any
		if err := json.Unmarshal(body, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "BadRequest", err.Error())
			return
		}
		for k, v := range patch {
			if k == "Id" || k == "Created" {
				continue
			}
			row[k] = v
		}
		row["LastModified"] = now()
		m.finish(w, set, id)
	case http.MethodDelete:
		delete(t.rows, id)
		for i, v := range t.order {
			if v == id {
				t.order = append(t.order[:i], t.order[i+1:]...)
				break
			}
		}
		m.finish(w, set, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", r.Method)
	}
}

func (m *MockServer) serveNavigation(w http.ResponseWriter, r *http.Request, set, id, segment string, body []byte) {
	t := m.sets[set]
	if t == nil || t.rows[id] == nil {
		writeError(w, http.StatusNotFound, "ResourceNotFound", fmt.Sprintf("%s('%s') not found", set, id))
		return
	}
	row := t.rows[id]

	if r.Method == http.MethodGet {
		switch {
		case set == "Channels" && segment == "Programs":
			m.list(w, r, "Programs", m.filterRows("Programs", "ChannelId", id))
		case set == "Assets" && segment == "Locators":
			m.list(w, r, "Locators", m.filterRows("Locators", "AssetId", id))
		default:
			var rows []map[string]any
			target := m.sets[navTarget(set, segment)]
			for _, linked := range m.links[linkKey(set, id, segment)] {
				if target != nil && target.rows[linked] != nil {
					rows = append(rows, target.rows[linked])
				}
			}
			m.list(w, r, navTarget(set, segment), rows)
		}
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", r.Method)
		return
	}

	var params map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &params); err != nil {
			writeError(w, http.StatusBadRequest, "BadRequest", err.Error())
			return
		}
	}
	switch segment {
	case "Start":
		row["State"] = "Running"
	case "Stop":
		row["State"] = "Stopped"
	case "Scale":
		if v, ok := params["reservedUnits"]; ok {
			row["ReservedUnits"] = v
		}
		if v, ok := params["scaleUnits"]; ok {
			row["ScaleUnits"] = v
		}
	case "GetKeyDeliveryUrl":
		kind := fmt.Sprint(params["keyDeliveryType"])
		writeJSON(w, http.StatusOK, map[string]any{
			"odata.metadata": m.Server.URL + APIRoot + "$metadata#Edm.String",
			"value":          m.deliveryURL + "?kid=" + url.QueryEscape(id) + "&type=" + kind,
		})
		return
	case "Reset", "StartAdvertisement", "EndAdvertisement", "ShowSlate", "HideSlate":
	default:
		writeError(w, http.StatusBadRequest, "UnknownAction", segment)
		return
	}
	row["LastModified"] = now()
	if m.async[set] || set == "Programs" {
		m.accept(w, id, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (m *MockServer) serveLinks(w http.ResponseWriter, r *http.Request, set, id, nav string, body []byte) {
	navSet, target, keyed := odata.ParseEntityPath(nav)
	key := linkKey(set, id, navSet)
	switch {
	case r.Method == http.MethodPost && !keyed:
		var link struct {
			URI string `json:"uri"`
		}
		if err := json.Unmarshal(body, &link); err != nil || link.URI == "" {
			writeError(w, http.StatusBadRequest, "BadRequest", "missing uri")
			return
		}
		last := link.URI[strings.LastIndex(link.URI, "/")+1:]
		if unescaped, err := url.PathUnescape(last); err == nil {
			last = unescaped
		}
		_, linked, ok := odata.ParseEntityPath(last)
		if !ok {
			writeError(w, http.StatusBadRequest, "BadRequest", "uri carries no key")
			return
		}
		m.links[key] = append(m.links[key], linked)
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodDelete && keyed:
		kept := m.links[key][:0]
		found := false
		for _, v := range m.links[key] {
			if v == target {
				found = true
				continue
			}
			kept = append(kept, v)
		}
		if !found {
			writeError(w, http.StatusNotFound, "ResourceNotFound", "link not found")
			return
		}
		m.links[key] = kept
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", r.Method)
	}
}

func (m *MockServer) list(w http.ResponseWriter, r *http.Request, set string, rows []map[string]any) {
	q := r.URL.Query()
	if filter := q.Get("$filter"); filter != "" {
		field, value, ok := parseEq(filter)
		if !ok {
			writeError(w, http.StatusBadRequest, "BadFilter", filter)
			return
		}
		var kept []map[string]any
		for _, row := range rows {
			if fmt.Sprint(row[field]) == value {
				kept = append(kept, row)
			}
		}
		rows = kept
	}
	skip, _ := strconv.Atoi(q.Get("$skiptoken"))
	if skip > len(rows) {
		skip = len(rows)
	}
	rows = rows[skip:]
	if top, err := strconv.Atoi(q.Get("$top")); err == nil && top < len(rows) {
		rows = rows[:top]
	}

	out := map[string]any{"odata.metadata": m.Server.URL + APIRoot + "$metadata#" + set}
	if m.pageSize > 0 && len(rows) > m.pageSize {
		next := url.Values{}
		for k, v := range q {
			if k != "$skiptoken" && k != "$top" {
				next[k] = v
			}
		}
		next.Set("$skiptoken", strconv.Itoa(skip+m.pageSize))
		rows = rows[:m.pageSize]
		out["odata.nextLink"] = "http://" + r.Host + r.URL.EscapedPath() + "?" + next.Encode()
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	out["value"] = rows
	writeJSON(w, http.StatusOK, out)
}

// accept answers 202 and registers an operation targeting id.
func (m *MockServer) accept(w http.ResponseWriter, id string, row map[string]any) {
	m.nextID++
	op := &operation{
		id:        fmt.Sprintf("nb:opid:UUID:%d", m.nextID),
		target:    id,
		remaining: m.opPolls,
	}
	if m.failNextOp != nil {
		op.failCode, op.failMsg = m.failNextOp.failCode, m.failNextOp.failMsg
		m.failNextOp = nil
	}
	m.ops[op.id] = op
	w.Header().Set(odata.HeaderOperationID, op.id)
	if row == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeJSON(w, http.StatusAccepted, row)
}

func (m *MockServer) finish(w http.ResponseWriter, set, id string) {
	if m.async[set] {
		m.accept(w, id, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (m *MockServer) poll(w http.ResponseWriter, id string) {
	op := m.ops[id]
	if op == nil {
		writeError(w, http.StatusNotFound, "ResourceNotFound", "operation not found")
		return
	}
	out := map[string]any{"Id": op.id, "TargetEntityId": op.target}
	switch {
	case op.remaining > 0:
		op.remaining--
		out["State"] = "InProgress"
	case op.failCode != "":
		out["State"] = "Failed"
		out["ErrorCode"] = op.failCode
		out["ErrorMessage"] = op.failMsg
	default:
		out["State"] = "Succeeded"
	}
	writeJSON(w, http.StatusOK, out)
}

func (m *MockServer) insert(set string, entity map[string]any) string {
	t := m.sets[set]
	if t == nil {
		t = &table{rows: make(map[string]map[string]any)}
		m.sets[set] = t
	}
	id, _ := entity["Id"].(string)
	if id == "" {
		m.nextID++
		id = fmt.Sprintf("nb:%s:UUID:%d", idPrefix(set), m.nextID)
	}
	entity["Id"] = id
	stamp := now()
	if _, ok := entity["Created"]; !ok || entity["Created"] == nil {
		entity["Created"] = stamp
	}
	entity["LastModified"] = stamp
	switch set {
	case "Channels", "Origins", "StreamingEndpoints", "Programs":
		if s, _ := entity["State"].(string); s == "" {
			entity["State"] = "Stopped"
		}
	case "Locators":
		entity["Path"] = m.Server.URL + "/blob/asset-" + fmt.Sprint(entity["AssetId"]) + "?sv=2012-02-12&sig=mock"
	case "Assets":
		entity["Uri"] = m.Server.URL + "/blob/asset-" + id
	}
	if _, exists := t.rows[id]; !exists {
		t.order = append(t.order, id)
	}
	t.rows[id] = entity
	return id
}

func (m *MockServer) rowsOf(set string) []map[string]any {
	t := m.sets[set]
	if t == nil {
		return nil
	}
	out := make([]map[string]any, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id])
	}
	return out
}

func (m *MockServer) filterRows(set, field, value string) []map[string]any {
	var out []map[string]any
	for _, row := range m.rowsOf(set) {
		if fmt.Sprint(row[field]) == value {
			out = append(out, row)
		}
	}
	return out
}

func splitPath(escaped string) []string {
	var out []string
	for _, part := range strings.Split(escaped, "/") {
		if part == "" {
			continue
		}
		if unescaped, err := url.PathUnescape(part); err == nil {
			part = unescaped
		}
		out = append(out, part)
	}
	return out
}

// parseEq understands the single "Field eq 'value'" filter clients send.
func parseEq(filter string) (field, value string, ok bool) {
	field, rest, found := strings.Cut(filter, " eq ")
	if !found || len(rest) < 2 || rest[0] != '\'' || rest[len(rest)-1] != '\'' {
		return "", "", false
	}
	return strings.TrimSpace(field), strings.ReplaceAll(rest[1:len(rest)-1], "''", "'"), true
}

func linkKey(set, id, nav string) string { return set + "('" + id + "')/" + nav }

func navTarget(set, nav string) string {
	if set == "ContentKeyAuthorizationPolicies" && nav == "Options" {
		return "ContentKeyAuthorizationPolicyOptions"
	}
	return nav
}

func idPrefix(set string) string {
	prefixes := map[string]string{
		"Channels":                             "chid",
		"Programs":                             "pgid",
		"Origins":                              "oid",
		"StreamingEndpoints":                   "oid",
		"Assets":                               "cid",
		"AccessPolicies":                       "pid",
		"Locators":                             "lid",
		"ContentKeyAuthorizationPolicies":      "ckpid",
		"ContentKeyAuthorizationPolicyOptions": "ckpoid",
	}
	if p, ok := prefixes[set]; ok {
		return p
	}
	return strings.ToLower(set)
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json;odata=minimalmetadata;charset=utf-8")
	w.Header().Set(odata.HeaderRequestID, "mock-request")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"odata.error": map[string]any{
			"code":    code,
			"message": map[string]any{"lang": "en-US", "value": message},
		},
	})
}

// SortedSets lists the entity sets that hold data.
func (m *MockServer) SortedSets() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sets))
	for k := range m.sets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
