package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tenantdesk/tenantdesk-backend/internal/admin/service"
	"github.com/tenantdesk/tenantdesk-backend/pkg/actor"
	"github.com/tenantdesk/tenantdesk-backend/pkg/errors"
	"github.com/tenantdesk/tenantdesk-backend/pkg/httputil"
	"github.com/tenantdesk/tenantdesk-backend/pkg/logger"
)

const fallbackMessage = "database operation failed"

// Dispatcher serves the database-management endpoint
type Dispatcher struct {
	auth   *service.Authenticator
	engine *service.Engine
	logger *logger.Logger
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(auth *service.Authenticator, engine *service.Engine, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		auth:   auth,
		engine: engine,
		logger: log.WithComponent("dispatcher"),
	}
}

// Routes mounts the endpoint at / and at the hosted-functions path
func (d *Dispatcher) Routes(r chi.Router) {
	for _, path := range []string{"/", "/functions/v1/database-management"} {
		r.Post(path, d.ServeHTTP)
		r.Options(path, Preflight)
	}
}

// Preflight answers CORS preflight requests with an empty 200
func Preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ServeHTTP authenticates, decodes and dispatches one request
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := d.logger.WithRequestID(httputil.GetRequestID(ctx))

	act, err := d.auth.RequireSuperAdmin(ctx, r.Header.Get("Authorization"))
	if err != nil {
		httputil.ErrorObject(w, err, http.StatusUnauthorized, "Unauthorized")
		return
	}
	ctx = actor.WithActor(ctx, act)
	log = log.WithActor(act.ID)
	httputil.NoteActor(ctx, act.ID)

	var req Request
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.ErrorObject(w, err, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.ErrorObject(w, httputil.FlattenValidation(err), http.StatusBadRequest, "invalid request")
		return
	}
	log = log.WithAction(req.Action)
	httputil.NoteAction(ctx, req.Action)

	result, err := d.dispatch(ctx, act.ID, &req)
	if err != nil {
		log.Warn().Err(err).Str("table", req.Table).Msg("action failed")
		httputil.ErrorObject(w, err, http.StatusBadRequest, fallbackMessage)
		return
	}

	log.Debug().Str("table", req.Table).Msg("action completed")
	httputil.Raw(w, http.StatusOK, result)
}

func (d *Dispatcher) dispatch(ctx context.Context, actorID string, req *Request) (any, error) {
	switch req.Action {
	case ActionListTables:
		return d.engine.ListTables(ctx)
	case ActionGetTableSchema:
		return d.engine.GetSchema(ctx, req.Table)
	case ActionGetTableData:
		return d.engine.GetData(ctx, service.DataRequest{
			Table:    req.Table,
			Page:     req.Page,
			PageSize: req.PageSize,
			Search:   req.Search,
			OrderBy:  req.OrderBy,
			OrderDir: req.OrderDir,
		})
	case ActionInsertRow:
		return d.engine.InsertRow(ctx, actorID, req.Table, req.RowData)
	case ActionUpdateRow:
		return d.engine.UpdateRow(ctx, actorID, req.Table, string(req.ID), req.RowData)
	case ActionDeleteRow:
		return d.engine.DeleteRow(ctx, actorID, req.Table, string(req.ID))
	case ActionAddColumn:
		return d.engine.AddColumn(ctx, actorID, service.AddColumnRequest{
			Table:        req.Table,
			Column:       req.ColumnName,
			Type:         req.ColumnType,
			Nullable:     req.IsNullable(),
			DefaultValue: req.DefaultValue,
		})
	case ActionDeleteColumn:
		return d.engine.DropColumn(ctx, actorID, req.Table, req.ColumnName)
	case ActionListEnums:
		return d.engine.ListEnums(ctx)
	case ActionAddEnumValue:
		return d.engine.AddEnumValue(ctx, actorID, req.EnumName, req.Value)
	case ActionGetAuditLog:
		return d.engine.GetAuditLog(ctx, req.Page, req.PageSize, req.EntityType)
	case ActionDatabaseHealth:
		return d.engine.DatabaseHealth(ctx)
	case ActionExportTable:
		return d.engine.ExportTable(ctx, req.Table, req.Format)
	default:
		return nil, errors.UnknownAction(req.Action)
	}
}
