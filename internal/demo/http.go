package demo

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/injector/di"
	"github.com/kbukum/injector/server"
	"github.com/kbukum/injector/server/middleware"
)

// Handler serves the demo services over HTTP. Its routes must be mounted
// under a group with middleware.Scope.
type Handler struct {
	inj *di.Injector
}

// NewHandler creates a Handler resolving from inj.
func NewHandler(inj *di.Injector) *Handler {
	return &Handler{inj: inj}
}

// Register mounts the demo routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/work", h.Work)
	r.GET("/process", h.Process)
}

// WorkResult shows which instances served a request.
type WorkResult struct {
	ScopeID           string `json:"scope_id"`
	Output            string `json:"output"`
	Worker            int64  `json:"worker_instance"`
	WorkerAgain       int64  `json:"worker_instance_again"`
	Processor         int64  `json:"processor_instance"`
	ProcessorAgain    int64  `json:"processor_instance_again"`
	ProcessorResponse string `json:"processor_output"`
}

// Work resolves Worker twice and Processor twice in the request's scope.
func (h *Handler) Work(c *gin.Context) {
	w1, ok := middleware.Resolve[Worker](c, h.inj)
	if !ok {
		return
	}
	w2, ok := middleware.Resolve[Worker](c, h.inj)
	if !ok {
		return
	}
	p1, ok := middleware.Resolve[Processor](c, h.inj)
	if !ok {
		return
	}
	p2, ok := middleware.Resolve[Processor](c, h.inj)
	if !ok {
		return
	}

	server.RespondOK(c, WorkResult{
		ScopeID:           middleware.ScopeID(c),
		Output:            w1.DoSomething(),
		Worker:            instanceOf(w1),
		WorkerAgain:       instanceOf(w2),
		Processor:         instanceOf(p1),
		ProcessorAgain:    instanceOf(p2),
		ProcessorResponse: p1.Process(),
	})
}

// Process runs a single Processor.
func (h *Handler) Process(c *gin.Context) {
	p, ok := middleware.Resolve[Processor](c, h.inj)
	if !ok {
		return
	}
	server.RespondOK(c, gin.H{"output": p.Process()})
}
