// Package v1 provides the REST handlers that trigger and inspect ledger syncs.
package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/ledgersync/internal/api/common"
	"github.com/stacklok/ledgersync/internal/connection"
	"github.com/stacklok/ledgersync/internal/status"
	pkgsync "github.com/stacklok/ledgersync/internal/sync"
	"github.com/stacklok/ledgersync/internal/sync/coordinator"
	"github.com/stacklok/ledgersync/internal/sync/state"
	"github.com/stacklok/ledgersync/internal/sync/writer"
)

// Routes holds the dependencies of the v1 handlers
type Routes struct {
	trigger     coordinator.Trigger
	connections connection.Store
	statuses    state.ConnectionStateService
	ledger      writer.Reader
}

// NewRoutes creates a new Routes instance
func NewRoutes(
	trigger coordinator.Trigger,
	connections connection.Store,
	statuses state.ConnectionStateService,
	ledger writer.Reader,
) *Routes {
	return &Routes{
		trigger:     trigger,
		connections: connections,
		statuses:    statuses,
		ledger:      ledger,
	}
}

// Router creates the v1 router
func Router(
	trigger coordinator.Trigger,
	connections connection.Store,
	statuses state.ConnectionStateService,
	ledger writer.Reader,
) http.Handler {
	routes := NewRoutes(trigger, connections, statuses, ledger)

	r := chi.NewRouter()
	r.Post("/sync", routes.syncAll)
	r.Get("/connections", routes.listConnections)
	r.Route("/connections/{id}", func(r chi.Router) {
		r.Get("/", routes.getConnection)
		r.Post("/sync", routes.syncConnection)
		r.Post("/deactivate", routes.deactivateConnection)
		r.Get("/status", routes.getStatus)
		r.Get("/accounts", routes.listAccounts)
		r.Get("/transactions", routes.listTransactions)
	})

	return r
}

// syncConnection handles POST /v1/connections/{id}/sync
//
// @Summary		Sync one connection
// @Description	Runs an incremental sync and returns its outcome. A failed run is reported in the body.
// @Tags		sync
// @Produce		json
// @Param		id	path		string	true	"Connection id"
// @Success		200	{object}	SyncResultResponse
// @Failure		400	{object}	common.ErrorResponse
// @Failure		404	{object}	common.ErrorResponse
// @Failure		409	{object}	SyncResultResponse	"Connection is already syncing"
// @Failure		503	{object}	common.ErrorResponse
// @Router		/v1/connections/{id}/sync [post]
func (routes *Routes) syncConnection(w http.ResponseWriter, r *http.Request) {
	id, err := common.GetIDParam(r, "id")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := routes.trigger.RunSync(r.Context(), id)
	if err != nil {
		switch pkgsync.KindOf(err) {
		case pkgsync.KindConnectionNotFound:
			common.WriteErrorResponse(w, "Connection not found", http.StatusNotFound)
		case pkgsync.KindLockHeld:
			common.WriteJSONResponse(w, NewSyncResultResponse(result), http.StatusConflict)
		case pkgsync.KindLockFailed:
			common.WriteErrorResponse(w, err.Error(), http.StatusServiceUnavailable)
		default:
			slog.Error("Failed to trigger sync", "connection_id", id, "error", err)
			common.WriteErrorResponse(w, "Failed to trigger sync", http.StatusInternalServerError)
		}
		return
	}

	common.WriteJSONResponse(w, NewSyncResultResponse(result), http.StatusOK)
}

// syncAll handles POST /v1/sync
//
// @Summary		Sync all active connections
// @Tags		sync
// @Produce		json
// @Success		200	{object}	SyncAllResponse
// @Failure		500	{object}	common.ErrorResponse
// @Router		/v1/sync [post]
func (routes *Routes) syncAll(w http.ResponseWriter, r *http.Request) {
	results, err := routes.trigger.RunSyncAll(r.Context())
	if err != nil {
		slog.Error("Failed to trigger sync of all connections", "error", err)
		common.WriteErrorResponse(w, "Failed to trigger sync", http.StatusInternalServerError)
		return
	}

	common.WriteJSONResponse(w, NewSyncAllResponse(results), http.StatusOK)
}

// listConnections handles GET /v1/connections
//
// @Summary		List active connections
// @Tags		connections
// @Produce		json
// @Success		200	{object}	ConnectionListResponse
// @Failure		500	{object}	common.ErrorResponse
// @Router		/v1/connections [get]
func (routes *Routes) listConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := routes.connections.ListActive(r.Context())
	if err != nil {
		slog.Error("Failed to list connections", "error", err)
		common.WriteErrorResponse(w, "Failed to list connections", http.StatusInternalServerError)
		return
	}

	statuses, err := routes.statuses.ListSyncStatuses(r.Context())
	if err != nil {
		slog.Warn("Failed to list sync statuses", "error", err)
		statuses = map[string]*status.SyncStatus{}
	}

	resp := ConnectionListResponse{Connections: make([]ConnectionResponse, 0, len(conns))}
	for _, conn := range conns {
		resp.Connections = append(resp.Connections, newConnectionResponse(conn, statuses[conn.ID]))
	}
	resp.Count = len(resp.Connections)

	common.WriteJSONResponse(w, resp, http.StatusOK)
}

// getConnection handles GET /v1/connections/{id}
//
// @Summary		Get a connection
// @Tags		connections
// @Produce		json
// @Param		id	path		string	true	"Connection id"
// @Success		200	{object}	ConnectionResponse
// @Failure		404	{object}	common.ErrorResponse
// @Router		/v1/connections/{id} [get]
func (routes *Routes) getConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := routes.lookupConnection(w, r)
	if !ok {
		return
	}
	conn, err := routes.connections.Get(r.Context(), id)
	if err != nil {
		routes.writeLookupError(w, id, err)
		return
	}

	st, err := routes.statuses.GetSyncStatus(r.Context(), id)
	if err != nil && !errors.Is(err, state.ErrConnectionNotTracked) {
		slog.Warn("Failed to get sync status", "connection_id", id, "error", err)
	}

	common.WriteJSONResponse(w, newConnectionResponse(conn, st), http.StatusOK)
}

// deactivateConnection handles POST /v1/connections/{id}/deactivate
//
// @Summary		Deactivate a connection
// @Description	Stops scheduled and triggered syncs of the connection. Its stored ledger is kept.
// @Tags		connections
// @Produce		json
// @Param		id	path		string	true	"Connection id"
// @Success		200	{object}	ConnectionResponse
// @Failure		400	{object}	common.ErrorResponse
// @Failure		404	{object}	common.ErrorResponse
// @Router		/v1/connections/{id}/deactivate [post]
func (routes *Routes) deactivateConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := routes.lookupConnection(w, r)
	if !ok {
		return
	}

	conn, err := routes.connections.Deactivate(r.Context(), id, time.Now().UTC())
	if err != nil {
		routes.writeLookupError(w, id, err)
		return
	}
	slog.Info("Connection deactivated", "connection_id", id)

	st, err := routes.statuses.GetSyncStatus(r.Context(), id)
	if err != nil && !errors.Is(err, state.ErrConnectionNotTracked) {
		slog.Warn("Failed to get sync status", "connection_id", id, "error", err)
	}

	common.WriteJSONResponse(w, newConnectionResponse(conn, st), http.StatusOK)
}

// getStatus handles GET /v1/connections/{id}/status
//
// @Summary		Get the sync status of a connection
// @Tags		connections
// @Produce		json
// @Param		id	path		string	true	"Connection id"
// @Success		200	{object}	status.SyncStatus
// @Failure		404	{object}	common.ErrorResponse
// @Router		/v1/connections/{id}/status [get]
func (routes *Routes) getStatus(w http.ResponseWriter, r *http.Request) {
	id, err := common.GetIDParam(r, "id")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	st, err := routes.statuses.GetSyncStatus(r.Context(), id)
	if errors.Is(err, state.ErrConnectionNotTracked) {
		common.WriteErrorResponse(w, "No sync status for connection", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Failed to get sync status", "connection_id", id, "error", err)
		common.WriteErrorResponse(w, "Failed to get sync status", http.StatusInternalServerError)
		return
	}

	common.WriteJSONResponse(w, st, http.StatusOK)
}

// listAccounts handles GET /v1/connections/{id}/accounts
//
// @Summary		List the stored accounts of a connection
// @Tags		ledger
// @Produce		json
// @Param		id	path		string	true	"Connection id"
// @Success		200	{object}	AccountListResponse
// @Failure		404	{object}	common.ErrorResponse
// @Router		/v1/connections/{id}/accounts [get]
func (routes *Routes) listAccounts(w http.ResponseWriter, r *http.Request) {
	id, ok := routes.lookupConnection(w, r)
	if !ok {
		return
	}
	if _, err := routes.connections.Get(r.Context(), id); err != nil {
		routes.writeLookupError(w, id, err)
		return
	}

	accounts, err := routes.ledger.ListAccounts(r.Context(), id)
	if err != nil {
		slog.Error("Failed to list accounts", "connection_id", id, "error", err)
		common.WriteErrorResponse(w, "Failed to list accounts", http.StatusInternalServerError)
		return
	}

	common.WriteJSONResponse(w, AccountListResponse{Accounts: accounts, Count: len(accounts)}, http.StatusOK)
}

// listTransactions handles GET /v1/connections/{id}/transactions
//
// @Summary		List the stored transactions of a connection
// @Tags		ledger
// @Produce		json
// @Param		id	path		string	true	"Connection id"
// @Success		200	{object}	TransactionListResponse
// @Failure		404	{object}	common.ErrorResponse
// @Router		/v1/connections/{id}/transactions [get]
func (routes *Routes) listTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := routes.lookupConnection(w, r)
	if !ok {
		return
	}
	if _, err := routes.connections.Get(r.Context(), id); err != nil {
		routes.writeLookupError(w, id, err)
		return
	}

	txns, err := routes.ledger.ListTransactions(r.Context(), id)
	if err != nil {
		slog.Error("Failed to list transactions", "connection_id", id, "error", err)
		common.WriteErrorResponse(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}

	common.WriteJSONResponse(w, TransactionListResponse{Transactions: txns, Count: len(txns)}, http.StatusOK)
}

// lookupConnection validates the {id} parameter and writes a 400 when it is invalid
func (*Routes) lookupConnection(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := common.GetIDParam(r, "id")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return id, true
}

func (*Routes) writeLookupError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, connection.ErrConnectionNotFound) {
		common.WriteErrorResponse(w, "Connection not found", http.StatusNotFound)
		return
	}
	slog.Error("Failed to get connection", "connection_id", id, "error", err)
	common.WriteErrorResponse(w, "Failed to get connection", http.StatusInternalServerError)
}
