package handler

import (
	"net/http"

	"rainchat/internal/pkg/errs"
	"rainchat/internal/pkg/logx"
	"rainchat/internal/pkg/resp"
)

// HandleStats returns a snapshot of hub state: online count, rain pool total,
// and per-room membership.
func HandleStats(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := deps.Hub.Snapshot()
		if err != nil {
			logx.Warn("Stats snapshot unavailable", "error", err.Error())
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, stats)
	}
}
