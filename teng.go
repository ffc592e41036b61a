// Package teng is Teng's public façade: it wires the engine's
// packages (cache, parser, vm, udf, writer, format, fragment) into
// the single "generate" entry point spec.md §6 describes, and
// supplies the thin collaborators §1/§9 scope as the façade's job
// rather than any inner [MODULE]'s.
package teng

import (
	"github.com/gotengo/teng/cache"
	"github.com/gotengo/teng/config"
	"github.com/gotengo/teng/ctype"
	"github.com/gotengo/teng/dict"
	"github.com/gotengo/teng/errlog"
	"github.com/gotengo/teng/fragment"
	"github.com/gotengo/teng/parser"
	"github.com/gotengo/teng/program"
	"github.com/gotengo/teng/udf"
	"github.com/gotengo/teng/vm"
)

// Request is spec.md §6's "Generate request (logical API)": a
// template to compile (by path or inline string, mutually exclusive),
// the optional skin/dictionary/language/parameters files that
// configure it, and the content-type/encoding it renders as.
type Request struct {
	TemplateFilename string // path to the main template; empty if TemplateString is set
	TemplateString   string // inline template source; empty if TemplateFilename is set

	Skin           string // optional skin file, resolved relative to TemplateFilename's directory
	DictFilename   string
	Lang           string
	ParamsFilename string

	ContentType string // MIME name registered in ctype.Registry; "" defaults to text/html
	Encoding    string // reserved for a future non-UTF-8 input path; unused at present
}

func (r Request) key() cache.Key {
	ct := r.ContentType
	if ct == "" {
		ct = "text/html"
	}
	return cache.Key{
		Template:    r.TemplateFilename,
		Skin:        r.Skin,
		Dict:        r.DictFilename,
		Lang:        r.Lang,
		Params:      r.ParamsFilename,
		ContentType: ct,
		Encoding:    r.Encoding,
	}
}

// Engine owns the process-wide collaborators a render needs: the
// TemplateCache (shared across concurrent renders, spec.md §5), the
// UDF registry (also process-wide per §5), and the ContentType
// registry. One Engine is normally built at process startup and
// reused for every Generate call.
type Engine struct {
	cache    *cache.TemplateCache
	udfs     *udf.Registry
	registry *ctype.Registry
	settings *config.Settings
}

// New builds an Engine. A nil settings uses config.DefaultSettings.
func New(settings *config.Settings) *Engine {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	settings.Normalize()
	return &Engine{
		cache:    cache.New(settings),
		udfs:     udf.NewRegistry(),
		registry: ctype.Default(),
		settings: settings,
	}
}

// UDFs exposes the engine's function registry so a host can register
// Simple/Contextual functions before the first Generate call.
func (e *Engine) UDFs() *udf.Registry { return e.udfs }

// Cache exposes the engine's TemplateCache, e.g. for a host that wants
// to call cache.SignedInvalidate or attach a cache.Watcher.
func (e *Engine) Cache() *cache.TemplateCache { return e.cache }

// Generate compiles (or reuses a cached compile of) req's template,
// resolves its dictionary, binds tree as the FragmentTree root, and
// renders through w, following spec.md §6's Generate contract.
// Returns 0 on a clean render and non-zero once an ERROR or FATAL
// entry has been logged (for example a writer failure or an
// unreadable required input); in both cases log carries every
// diagnostic emitted along the way.
func (e *Engine) Generate(req Request, tree *fragment.Tree, w vm.Writer) (int, *errlog.Log) {
	log := errlog.New(0)

	// spec.md §7: "I/O on input: fail compilation with ERROR; generate
	// returns non-zero" — distinct from a writer (output) failure,
	// which vm.Processor itself logs as FATAL.
	params, err := e.loadParams(req)
	if err != nil {
		log.Error(errlog.Position{Filename: req.ParamsFilename}, "%s", err)
		return 1, log
	}

	d, err := e.loadDict(req, params)
	if err != nil {
		log.Error(errlog.Position{Filename: req.DictFilename}, "%s", err)
		return 1, log
	}

	prog, err := e.compile(req, params, log)
	if err != nil {
		log.Error(errlog.Position{Filename: req.TemplateFilename}, "%s", err)
		return 1, log
	}

	stack := fragment.NewStack(tree)
	proc := vm.NewProcessor(prog, stack, d, params, w, log, e.registry, e.udfs)
	return proc.Run(), log
}

func (e *Engine) loadParams(req Request) (*config.Parameters, error) {
	if req.ParamsFilename == "" {
		return config.DefaultParameters(), nil
	}
	return config.LoadParameters(req.ParamsFilename)
}

func (e *Engine) loadDict(req Request, params *config.Parameters) (*dict.Dictionary, error) {
	if req.DictFilename == "" {
		return dict.New(), nil
	}
	return e.cache.GetDict(req.key(), params)
}

// compile returns a compiled Program for req: the TemplateCache's
// build-lock-collapsing, mtime-validated path for a file-backed
// template, or a direct one-shot parser.Compile for an inline
// TemplateString (which, having no path, cannot be cached per §4.7's
// path-keyed scheme).
func (e *Engine) compile(req Request, params *config.Parameters, log *errlog.Log) (*program.Program, error) {
	ct := req.ContentType
	if ct == "" {
		ct = "text/html"
	}
	if req.TemplateFilename == "" {
		p := parser.New(log, nil, params)
		return p.Compile("<string>", req.TemplateString, ct), nil
	}
	return e.cache.GetProgram(req.key(), params, log)
}
