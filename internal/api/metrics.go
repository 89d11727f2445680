package api

import (
	"log/slog"
	"net/http"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// metrics returns GET /metrics in the format negotiated from the Accept
// header. ?prefix= restricts the output to families whose name starts with it.
func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	mfs, err := h.cfg.Gatherer.Gather()
	if err != nil && len(mfs) == 0 {
		slog.Error("api: gather metrics", "err", err)
		jsonErr(w, http.StatusInternalServerError, "gather metrics failed")
		return
	}
	mfs = filterFamilies(mfs, r.URL.Query().Get("prefix"))

	format := expfmt.Negotiate(r.Header)
	w.Header().Set("Content-Type", string(format))
	w.WriteHeader(http.StatusOK)

	enc := expfmt.NewEncoder(w, format)
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			slog.Warn("api: encode metric family", "family", mf.GetName(), "err", err)
			return
		}
	}
	if c, ok := enc.(expfmt.Closer); ok {
		_ = c.Close()
	}
}

// filterFamilies keeps families whose name has prefix. An empty prefix keeps all.
func filterFamilies(mfs []*dto.MetricFamily, prefix string) []*dto.MetricFamily {
	if prefix == "" {
		return mfs
	}
	out := make([]*dto.MetricFamily, 0, len(mfs))
	for _, mf := range mfs {
		if strings.HasPrefix(mf.GetName(), prefix) {
			out = append(out, mf)
		}
	}
	return out
}
