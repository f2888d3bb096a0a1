package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"

	serrors "github.com/Aman-CERP/sift/internal/errors"
	"github.com/Aman-CERP/sift/internal/schema"
)

// AlgoliaQueryRequest is the body of POST /1/indexes/{index}/query.
// Clients send the query either directly or inside the URL-encoded params string.
type AlgoliaQueryRequest struct {
	Query  *string `json:"query"`
	Params string  `json:"params"`
}

// AlgoliaQueryResponse mirrors the fields InstantSearch clients read.
type AlgoliaQueryResponse struct {
	Hits             []map[string]string `json:"hits"`
	NbHits           int                 `json:"nbHits"`
	Query            string              `json:"query"`
	Params           string              `json:"params"`
	ProcessingTimeMS int64               `json:"processingTimeMS"`
}

// AlgoliaBatchRequest is the body of POST /1/indexes/{index}/batch.
type AlgoliaBatchRequest struct {
	Requests []AlgoliaBatchOperation `json:"requests"`
}

// AlgoliaBatchOperation is one write in a batch.
type AlgoliaBatchOperation struct {
	Action string          `json:"action"`
	Body   json.RawMessage `json:"body"`
}

// AlgoliaBatchResponse acknowledges a batch.
type AlgoliaBatchResponse struct {
	TaskID    int64    `json:"taskID"`
	ObjectIDs []string `json:"objectIDs"`
	UpdatedAt string   `json:"updatedAt"`
}

// HandleAlgoliaQuery handles POST /1/indexes/{index}/query.
func (h *Handler) HandleAlgoliaQuery(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["index"]
	start := time.Now()

	body, err := readBody(w, r)
	if err != nil {
		h.countStatus(name, writeError(w, err))
		return
	}

	var req AlgoliaQueryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.countStatus(name, writeError(w, serrors.ValidationError("invalid query body", err)))
		return
	}

	query, ok := req.query()
	if !ok {
		h.countStatus(name, writeError(w,
			serrors.New(serrors.ErrCodeQueryFailed, "query body has no query", nil)))
		return
	}

	result, ok := h.search(w, r, name, query)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, AlgoliaQueryResponse{
		Hits:             result.Hits,
		NbHits:           result.Count,
		Query:            query,
		Params:           req.Params,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	})
}

// query returns the query text from the body, falling back to params.
func (q AlgoliaQueryRequest) query() (string, bool) {
	if q.Query != nil {
		return *q.Query, true
	}
	if q.Params == "" {
		return "", false
	}
	values, err := url.ParseQuery(q.Params)
	if err != nil || !values.Has("query") {
		return "", false
	}
	return values.Get("query"), true
}

// HandleAlgoliaBatch handles POST /1/indexes/{index}/batch. Every
// addObject/updateObject body is written through CreateOrAppend in order;
// the first failure stops the batch and earlier writes are kept.
func (h *Handler) HandleAlgoliaBatch(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["index"]

	body, err := readBody(w, r)
	if err != nil {
		h.countStatus(name, writeError(w, err))
		return
	}

	var req AlgoliaBatchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.countStatus(name, writeError(w, serrors.ValidationError("invalid batch body", err)))
		return
	}
	if len(req.Requests) == 0 {
		h.countStatus(name, writeError(w, serrors.ValidationError("batch has no requests", nil)))
		return
	}

	h.stats.IncrementIndexUsage(name)

	objectIDs := make([]string, 0, len(req.Requests))
	for i, op := range req.Requests {
		switch op.Action {
		case "", "addObject", "updateObject":
		default:
			h.countStatus(name, writeError(w, serrors.ValidationError(
				fmt.Sprintf("request %d: unsupported action %q", i, op.Action), nil)))
			return
		}

		doc, err := schema.ParseDocument(op.Body)
		if err != nil {
			h.countStatus(name, writeError(w, err))
			return
		}

		if _, err := h.registry.CreateOrAppend(r.Context(), name, doc); err != nil {
			h.countStatus(name, writeError(w, err))
			return
		}
		h.stats.IncrementDocsPerIndex(name)

		id, _ := doc.Get("objectID")
		objectIDs = append(objectIDs, id)
	}

	writeJSON(w, http.StatusOK, AlgoliaBatchResponse{
		TaskID:    h.taskID.Add(1),
		ObjectIDs: objectIDs,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
}
