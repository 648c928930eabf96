// Package engine is the single entry point a caller drives: raw SQL text
// in, a uniform result shape out. It owns the catalog, the store, and the
// one mutex that serializes every statement against them (spec.md §5:
// "one engine instance owns one data directory"; Execute takes this
// mutex itself, so concurrent callers are run one at a time).
package engine

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vinaxue/cs5510-project3/internal/ast"
	"github.com/vinaxue/cs5510-project3/internal/binder"
	"github.com/vinaxue/cs5510-project3/internal/catalog"
	"github.com/vinaxue/cs5510-project3/internal/ddl"
	"github.com/vinaxue/cs5510-project3/internal/errs"
	"github.com/vinaxue/cs5510-project3/internal/exec"
	"github.com/vinaxue/cs5510-project3/internal/sqlparse"
	"github.com/vinaxue/cs5510-project3/internal/store"
	"github.com/vinaxue/cs5510-project3/internal/telemetry"
	"github.com/vinaxue/cs5510-project3/internal/types"
)

// executionFields groups a statement's execution metrics under a single
// "execution" object field, so every statement_executed log line carries
// one nested object rather than three top-level fields.
func executionFields(fields ...zap.Field) zap.Field {
	return zap.Object("execution", zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		for _, f := range fields {
			f.AddTo(enc)
		}
		return nil
	}))
}

// Engine owns one data directory's catalog and store for the lifetime of
// the process.
type Engine struct {
	mu  sync.Mutex
	cat *catalog.Catalog
	st  *store.Store
	ddl *ddl.Manager
	ex  *exec.Executor
	log *zap.Logger
	tel *telemetry.Registry
}

// Open loads (or initializes) the catalog and store at dataDir. log and
// tel may be nil; a nil logger falls back to zap.NewNop, and a nil
// telemetry registry simply means no StatementExecuted events are
// published.
func Open(dataDir string, log *zap.Logger, tel *telemetry.Registry) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	st, err := store.Open(dataDir)
	if err != nil {
		return nil, err
	}
	catalogPath := st.CatalogPath()
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		st.Close()
		return nil, err
	}
	return &Engine{
		cat: cat,
		st:  st,
		ddl: ddl.New(cat, st, catalogPath),
		ex:  exec.New(cat, st),
		log: log,
		tel: tel,
	}, nil
}

func (e *Engine) Close() error {
	return e.st.Close()
}

// Result is the JSON shape every statement renders to: "rows" for a
// SELECT, "rows_affected" for INSERT/UPDATE/DELETE, "runtime_ms" (always
// present), and "error". Empty rows, a zero rows_affected, and an empty
// error are omitted from the JSON rather than rendered as null.
type Result struct {
	Rows         []map[string]any `json:"rows,omitempty"`
	RowsAffected int              `json:"rows_affected,omitempty"`
	RuntimeMS    float64          `json:"runtime_ms"`
	Error        string           `json:"error,omitempty"`
}

// Execute parses, binds, and runs one statement. A typed error at any
// stage is rendered into Result.Error rather than returned, per spec.md
// §6's single uniform result shape; only a failure to even attempt
// execution (a nil Engine, etc.) would return a Go error, which cannot
// happen through this entry point.
func (e *Engine) Execute(text string) *Result {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	res, paths, execErr := e.execute(text)
	elapsed := time.Since(start)
	res.RuntimeMS = float64(elapsed.Microseconds()) / 1000.0

	if execErr != nil {
		res.Error = execErr.Error()
		kind := errs.Kind("")
		if ee, ok := execErr.(*errs.Error); ok {
			kind = errs.Kind(ee.Kind())
		}
		e.log.Warn("statement_failed", zap.String("kind", string(kind)), zap.Error(execErr))
		if kind == errs.KindStorageCorrupt || kind == errs.KindStorageLocked {
			e.log.Fatal("unrecoverable storage error", zap.String("kind", string(kind)), zap.Error(execErr))
		}
	} else {
		e.log.Info("statement_executed", executionFields(
			zap.Duration("duration", elapsed),
			zap.Int("rows_affected", res.RowsAffected),
			zap.Int("rows_returned", len(res.Rows)),
		))
	}

	if e.tel != nil {
		e.tel.Publish(telemetry.StatementExecuted{
			StatementKind: statementKind(text),
			AccessPaths:   paths.Desc,
			Handles:       paths.Handles,
			RowsAffected:  res.RowsAffected,
			RowsReturned:  len(res.Rows),
			Duration:      elapsed,
			Error:         res.Error,
		})
	}
	return res
}

// accessPaths bundles an executed SELECT's chosen access paths for
// telemetry, alongside the stable (table id, column index) handle each
// one resolved to.
type accessPaths struct {
	Desc    []string
	Handles []string
}

func (e *Engine) execute(text string) (*Result, accessPaths, error) {
	stmt, err := sqlparse.Parse(text)
	if err != nil {
		return &Result{}, accessPaths{}, err
	}

	plan, err := binder.Bind(e.cat, e.st, stmt)
	if err != nil {
		return &Result{}, accessPaths{}, err
	}

	switch s := stmt.(type) {
	case *ast.CreateTable:
		if err := e.ddl.CreateTable(s); err != nil {
			return &Result{}, accessPaths{}, err
		}
		return &Result{RowsAffected: 0}, accessPaths{}, nil
	case *ast.DropTable:
		if err := e.ddl.DropTable(s); err != nil {
			return &Result{}, accessPaths{}, err
		}
		return &Result{}, accessPaths{}, nil
	case *ast.CreateIndex:
		if err := e.ddl.CreateIndex(s); err != nil {
			return &Result{}, accessPaths{}, err
		}
		return &Result{}, accessPaths{}, nil
	case *ast.DropIndex:
		if err := e.ddl.DropIndex(s); err != nil {
			return &Result{}, accessPaths{}, err
		}
		return &Result{}, accessPaths{}, nil
	}

	res, err := e.ex.Execute(plan)
	if err != nil {
		return &Result{}, accessPaths{}, err
	}
	out := &Result{RowsAffected: res.RowsAffected}
	if res.Rows != nil {
		out.Rows = make([]map[string]any, len(res.Rows))
		for i, r := range res.Rows {
			m := make(map[string]any, len(r))
			for k, v := range r {
				m[k] = nativeValue(v)
			}
			out.Rows[i] = m
		}
	}
	paths := accessPaths{
		Desc:    make([]string, len(res.AccessPaths)),
		Handles: make([]string, len(res.AccessPaths)),
	}
	for i, p := range res.AccessPaths {
		paths.Desc[i] = p.Desc
		paths.Handles[i] = p.Handle
	}
	return out, paths, nil
}

func nativeValue(v types.Value) any {
	switch v.Kind {
	case types.Int64:
		return v.I
	case types.Double:
		return v.D
	default:
		return v.S
	}
}

// statementKind reports the leading keyword of a statement ("SELECT",
// "INSERT", ...) for telemetry, without re-parsing it.
func statementKind(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}
