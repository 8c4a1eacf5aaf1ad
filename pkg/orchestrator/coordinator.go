// Package orchestrator runs the multi-agent pipeline behind every chat
// request. The coordinator gates trivial turns, plans which specialists to
// consult, fans supporting agents out in parallel, and has the primary
// agent synthesise their findings into one answer, streaming events to the
// caller the whole way. Partial failure degrades the answer instead of
// aborting it: a dead specialist becomes a placeholder section and a dead
// primary still completes the stream when chunks already went out.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/northstar-pm/northstar/pkg/agent"
	"github.com/northstar-pm/northstar/pkg/agent/agentctx"
	"github.com/northstar-pm/northstar/pkg/agent/prompt"
	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/events"
	"github.com/northstar-pm/northstar/pkg/intent"
	"github.com/northstar-pm/northstar/pkg/models"
)

// coordinatorName identifies the orchestrator side of agent interactions.
const coordinatorName = "coordinator"

// Progress bands. Knowledge retrieval reports inside 0.1–0.2, the
// supporting fan-out inside 0.3–0.7, primary synthesis 0.8–0.95, and the
// terminal Complete event stands for 1.0.
const (
	progressKnowledge     = 0.1
	progressKnowledgeDone = 0.2
	progressSupporting    = 0.3
	progressSupportingEnd = 0.7
	progressPrimary       = 0.8
	progressPrimaryDone   = 0.95
)

// EscalationPolicy swaps the primary agent's model tier around the
// synthesis call: a primary sitting on From runs the synthesis on To and is
// restored afterwards. The zero value disables escalation.
type EscalationPolicy struct {
	From config.ModelTier
	To   config.ModelTier
}

// DefaultEscalationPolicy upgrades fast-tier primaries to the standard
// tier for user-facing chat.
func DefaultEscalationPolicy() EscalationPolicy {
	return EscalationPolicy{From: config.TierFast, To: config.TierStandard}
}

func (p EscalationPolicy) enabled() bool {
	return p.From.IsValid() && p.To.IsValid() && p.From != p.To
}

// Options tunes coordinator behaviour. The zero value works: defaults fall
// back to the built-in system defaults and escalation stays off.
type Options struct {
	// Defaults supplies the fan-out cap, chunk size, response length and
	// default model tier.
	Defaults *config.Defaults

	// Escalation is applied to chat synthesis only, never to field help.
	Escalation EscalationPolicy

	// InteractionHistory bounds the retained cross-run interaction log.
	// Zero selects the built-in capacity.
	InteractionHistory int
}

// Coordinator orchestrates one answer per request out of many agents.
// Safe for concurrent use; per-run state lives on the stack and the shared
// interaction log is internally locked.
type Coordinator struct {
	agents  map[config.AgentRole]agent.Agent
	builder *agentctx.Builder
	router  *Router
	gate    *intent.Gate
	opts    Options
	history *interactionRing
	logger  *slog.Logger
}

// NewCoordinator wires the coordinator. agents is the full role roster from
// the agent factory; builder may be nil, which degrades every context to
// just the request fields.
func NewCoordinator(agents map[config.AgentRole]agent.Agent, builder *agentctx.Builder, opts Options) *Coordinator {
	if opts.Defaults == nil {
		opts.Defaults = config.DefaultDefaults()
	}
	if builder == nil {
		builder = agentctx.NewBuilder(nil, nil, nil, 0, opts.Defaults)
	}
	return &Coordinator{
		agents:  agents,
		builder: builder,
		router:  NewRouter(opts.Defaults.MaxParallelAgents),
		gate:    intent.NewGate(),
		opts:    opts,
		history: newInteractionRing(opts.InteractionHistory),
		logger:  slog.With("component", "coordinator"),
	}
}

// discardSink backs the synchronous path: same pipeline, no consumer.
var discardSink = events.SinkFunc(func(context.Context, string, []byte) error { return nil })

// Process runs the pipeline synchronously and returns the synthesised
// response.
func (c *Coordinator) Process(ctx context.Context, req *models.ChatRequest) (*models.MultiAgentResponse, error) {
	return c.run(ctx, req, events.NewEmitter(discardSink, ""))
}

// ProcessStream runs the pipeline while streaming events through emitter.
// The returned response duplicates the terminal Complete event so queued
// callers can persist it without re-parsing their own stream.
func (c *Coordinator) ProcessStream(ctx context.Context, req *models.ChatRequest, emitter *events.Emitter) (*models.MultiAgentResponse, error) {
	if emitter == nil {
		emitter = events.NewEmitter(discardSink, "")
	}
	return c.run(ctx, req, emitter)
}

// RecentInteractions returns the retained cross-run interaction log,
// oldest first.
func (c *Coordinator) RecentInteractions() []models.Interaction {
	return c.history.Snapshot()
}

func (c *Coordinator) run(ctx context.Context, req *models.ChatRequest, em *events.Emitter) (*models.MultiAgentResponse, error) {
	if req == nil {
		return nil, errors.New("coordinator: nil request")
	}
	start := time.Now()

	// 1. Intent gate. Trivial turns get a templated reply, zero agent
	// calls and no context assembly; the gate sees caller-supplied history
	// only, because loading stored history costs more than the gate saves.
	if decision := c.gate.Classify(req.Query, req.History, req.PhaseName); !decision.Proceed {
		return c.finishGated(ctx, req, em, decision, start)
	}

	// 2. Assemble the immutable request context once; every agent in this
	// run reads the same snapshot.
	rc := c.builder.Build(ctx, req)

	// 3. Inline field help takes the single-agent fast path.
	if req.CurrentField != "" {
		return c.runFormHelp(ctx, req, rc, em, start)
	}

	route := c.router.Plan(req)
	c.logger.Info("Execution plan ready",
		"primary", route.Primary,
		"confidence", route.Confidence,
		"supporting", route.Supporting,
		"reason", route.Reason)

	var (
		sections     []prompt.Section
		interactions []models.Interaction
		warnings     []string
		partial      bool
	)

	// 4. Knowledge first, sequentially, so the fan-out prompt can carry
	// its findings. A skip just means later prompts cite nothing.
	knowledgeContent := ""
	if containsRole(route.Supporting, config.RoleKnowledge) {
		c.progress(ctx, em, progressKnowledge, "Consulting product knowledge")
		resp, in := c.runKnowledge(ctx, req, rc, em)
		if in != nil {
			interactions = append(interactions, *in)
		}
		if resp != nil {
			knowledgeContent = resp.Content
			sections = append(sections, prompt.Section{Role: config.RoleKnowledge, Content: resp.Content})
		}
		c.progress(ctx, em, progressKnowledgeDone, "Knowledge step complete")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 5. Remaining specialists run in parallel on a shared prompt. A
	// failed specialist costs its section, not the run.
	specialists := withoutRole(route.Supporting, config.RoleKnowledge)
	for _, r := range c.fanOut(ctx, req, rc, em, specialists, knowledgeContent) {
		switch {
		case r.err != nil:
			partial = true
			warnings = append(warnings, fmt.Sprintf("%s agent failed: %v", r.role, r.err))
			sections = append(sections, prompt.Section{
				Role:    r.role,
				Content: fmt.Sprintf("Agent %s failed", prompt.RoleTitle(r.role)),
			})
		case r.resp.Metadata.Skipped:
			// Nothing to contribute; the synthesis never sees this role.
		default:
			interactions = append(interactions, r.interaction)
			sections = append(sections, prompt.Section{Role: r.role, Content: r.resp.Content})
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 6. Primary synthesis over everything gathered, streamed in chunks.
	primary, ok := c.agents[route.Primary]
	if !ok {
		return nil, fmt.Errorf("coordinator: no agent registered for role %q", route.Primary)
	}
	c.progress(ctx, em, progressPrimary, fmt.Sprintf("Synthesising answer with the %s agent", route.Primary))
	c.agentStart(ctx, em, route.Primary, false)

	synthesis := prompt.SynthesisPrompt(req.Query, sections, req.PhaseName, wantsFullDocument(req.Query))
	ck := newChunker(em, route.Primary, c.opts.Defaults.ChunkSize, c.logger)
	resp, tier, err := c.invokePrimary(ctx, req, primary, synthesis, rc, ck)
	if err != nil {
		if cancelErr := ctx.Err(); cancelErr != nil {
			return nil, cancelErr
		}
		c.errorEvent(ctx, em, route.Primary, err.Error())
		if ck.Count() == 0 {
			return nil, fmt.Errorf("primary agent %s: %w", route.Primary, err)
		}
		// Chunks already reached the consumer; finish the stream with
		// what they saw rather than retracting it.
		c.logger.Warn("Primary agent failed mid-stream, completing with partial content",
			"role", route.Primary, "chunks", ck.Count(), "error", err)
		partial = true
		warnings = append(warnings, fmt.Sprintf("%s agent failed mid-stream: %v", route.Primary, err))
		resp = &models.AgentResponse{
			Role:    route.Primary,
			Content: ck.Emitted(),
			Metadata: models.ResponseMetadata{
				AgentType: route.Primary,
				Reason:    "primary agent failed mid-stream",
			},
		}
	} else {
		in := models.NewInteraction(coordinatorName, string(route.Primary), synthesis, resp.Content, resp.Metadata)
		interactions = append(interactions, in)
		c.interaction(ctx, em, in)
		c.agentComplete(ctx, em, route.Primary, resp.Content, resp.Metadata)
	}
	c.progress(ctx, em, progressPrimaryDone, "Finalising response")

	// 7. Response-length enforcement happens after generation so the
	// synthesis prompt stays simple.
	maxWords := c.responseLength(req).MaxWords()
	if capped, cut := truncateWords(resp.Content, maxWords); cut {
		resp.Content = capped
		warnings = append(warnings, fmt.Sprintf("response truncated to %d words", maxWords))
	}

	final := &models.MultiAgentResponse{
		Response:     *resp,
		Interactions: interactions,
		Metadata: models.CompleteMetadata{
			PrimaryRole:     route.Primary,
			SupportingRoles: route.Supporting,
			ModelTier:       tier,
			ProcessingTime:  time.Since(start),
			Partial:         partial,
			Warnings:        warnings,
		},
	}
	c.history.Add(interactions...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.progress(ctx, em, 1.0, "Done")
	c.complete(ctx, em, final)
	return final, nil
}

// finishGated answers a stopped turn from the reply template: a single
// Complete event carrying the suggested reply, nothing else.
func (c *Coordinator) finishGated(ctx context.Context, req *models.ChatRequest, em *events.Emitter, decision intent.Decision, start time.Time) (*models.MultiAgentResponse, error) {
	c.logger.Info("Intent gate stopped the pipeline",
		"intent", decision.Intent, "reason", decision.Reason)

	// The reply is presented as the agent the query would have routed to,
	// which keeps the conversation voice stable across gated turns.
	route := c.router.Plan(req)
	final := &models.MultiAgentResponse{
		Response: models.AgentResponse{
			Role:    route.Primary,
			Content: decision.SuggestedReply,
			Metadata: models.ResponseMetadata{
				AgentType: route.Primary,
				Reason:    decision.Reason,
			},
		},
		Metadata: models.CompleteMetadata{
			PrimaryRole:      route.Primary,
			ModelTier:        c.opts.Defaults.ModelTier,
			ProcessingTime:   time.Since(start),
			SuggestedReplies: gateSuggestions(req.PhaseName),
		},
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.complete(ctx, em, final)
	return final, nil
}

// runFormHelp is the single-agent fast path for inline field help: the
// phase expert answers alone on the fast tier. Knowledge snippets arrive
// through the request context rather than a knowledge agent call, so the
// only network round trip is the one completion.
func (c *Coordinator) runFormHelp(ctx context.Context, req *models.ChatRequest, rc *models.RequestContext, em *events.Emitter, start time.Time) (*models.MultiAgentResponse, error) {
	route := c.router.Plan(req)
	primary, ok := c.agents[route.Primary]
	if !ok {
		return nil, fmt.Errorf("coordinator: no agent registered for role %q", route.Primary)
	}
	c.logger.Info("Field-help fast path",
		"role", route.Primary, "field", req.CurrentField, "phase", req.PhaseName)
	c.progress(ctx, em, progressPrimary, fmt.Sprintf("Drafting help for the %s field", req.CurrentField))
	c.agentStart(ctx, em, route.Primary, false)

	restore := c.pinTier(primary, config.TierFast)
	query := prompt.FormHelpPrompt(req.Query, req.PhaseName, req.CurrentField)
	ck := newChunker(em, route.Primary, c.opts.Defaults.ChunkSize, c.logger)
	resp, err := c.streamAgent(ctx, primary, query, rc, ck)
	restore()
	if err != nil {
		if cancelErr := ctx.Err(); cancelErr != nil {
			return nil, cancelErr
		}
		c.errorEvent(ctx, em, route.Primary, err.Error())
		return nil, fmt.Errorf("field help %s: %w", route.Primary, err)
	}

	in := models.NewInteraction(coordinatorName, string(route.Primary), query, resp.Content, resp.Metadata)
	c.interaction(ctx, em, in)
	c.agentComplete(ctx, em, route.Primary, resp.Content, resp.Metadata)

	maxWords := c.responseLength(req).MaxWords()
	if capped, cut := truncateWords(resp.Content, maxWords); cut {
		resp.Content = capped
	}

	final := &models.MultiAgentResponse{
		Response:     *resp,
		Interactions: []models.Interaction{in},
		Metadata: models.CompleteMetadata{
			PrimaryRole:    route.Primary,
			ModelTier:      config.TierFast,
			ProcessingTime: time.Since(start),
		},
	}
	c.history.Add(in)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.progress(ctx, em, 1.0, "Done")
	c.complete(ctx, em, final)
	return final, nil
}

// runKnowledge consults the knowledge agent. Any failure degrades to a
// skip; the run continues and the answer simply cites nothing.
func (c *Coordinator) runKnowledge(ctx context.Context, req *models.ChatRequest, rc *models.RequestContext, em *events.Emitter) (*models.AgentResponse, *models.Interaction) {
	c.agentStart(ctx, em, config.RoleKnowledge, true)
	resp, err := c.invoke(ctx, config.RoleKnowledge, req.Query, rc)
	if err != nil {
		c.logger.Warn("Knowledge agent failed, continuing without it", "error", err)
		c.agentComplete(ctx, em, config.RoleKnowledge, "", models.ResponseMetadata{
			AgentType: config.RoleKnowledge,
			Skipped:   true,
			Reason:    "knowledge agent failed",
		})
		return nil, nil
	}
	if resp.Metadata.Skipped {
		c.logger.Debug("Knowledge agent skipped", "reason", resp.Metadata.Reason)
		c.agentComplete(ctx, em, config.RoleKnowledge, "", resp.Metadata)
		return nil, nil
	}

	in := models.NewInteraction(coordinatorName, string(config.RoleKnowledge), req.Query, resp.Content, resp.Metadata)
	c.interaction(ctx, em, in)
	c.agentComplete(ctx, em, config.RoleKnowledge, resp.Content, resp.Metadata)
	return resp, &in
}

// supportingResult pairs one specialist's outcome with its launch index so
// collection can restore plan order.
type supportingResult struct {
	index       int
	role        config.AgentRole
	resp        *models.AgentResponse
	err         error
	interaction models.Interaction
}

// fanOut runs the specialists in parallel and returns their results in
// launch order. Per-agent events are emitted as each finishes; progress
// walks the supporting band as completions land.
func (c *Coordinator) fanOut(ctx context.Context, req *models.ChatRequest, rc *models.RequestContext, em *events.Emitter, roles []config.AgentRole, knowledgeContent string) []supportingResult {
	if len(roles) == 0 {
		return nil
	}
	c.progress(ctx, em, progressSupporting,
		fmt.Sprintf("Consulting %d specialist agent(s)", len(roles)))
	query := supportingQuery(req.Query, knowledgeContent)

	results := make(chan supportingResult, len(roles))
	var wg sync.WaitGroup
	var done atomic.Int64
	for i, role := range roles {
		wg.Add(1)
		go func(idx int, role config.AgentRole) {
			defer wg.Done()

			c.agentStart(ctx, em, role, true)
			resp, err := c.invoke(ctx, role, query, rc)
			res := supportingResult{index: idx, role: role, resp: resp, err: err}
			switch {
			case err != nil:
				c.logger.Warn("Supporting agent failed", "role", role, "error", err)
				c.errorEvent(ctx, em, role, err.Error())
			case resp.Metadata.Skipped:
				c.agentComplete(ctx, em, role, "", resp.Metadata)
			default:
				res.interaction = models.NewInteraction(coordinatorName, string(role), query, resp.Content, resp.Metadata)
				c.interaction(ctx, em, res.interaction)
				c.agentComplete(ctx, em, role, resp.Content, resp.Metadata)
			}

			frac := float64(done.Add(1)) / float64(len(roles))
			c.progress(ctx, em,
				progressSupporting+(progressSupportingEnd-progressSupporting)*frac,
				fmt.Sprintf("%s insights gathered", prompt.RoleTitle(role)))
			results <- res
		}(i, role)
	}
	wg.Wait()
	close(results)

	collected := make([]supportingResult, 0, len(roles))
	for r := range results {
		collected = append(collected, r)
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })
	return collected
}

// invoke runs one agent with the conversation history plus the composed
// query as the final user turn.
func (c *Coordinator) invoke(ctx context.Context, role config.AgentRole, query string, rc *models.RequestContext) (*models.AgentResponse, error) {
	a, ok := c.agents[role]
	if !ok {
		return nil, fmt.Errorf("no agent registered for role %q", role)
	}
	return a.Process(ctx, messagesFor(rc, query), rc)
}

// invokePrimary runs the synthesis call with the request's tier swap
// applied, streaming deltas through the chunker when the agent supports it.
func (c *Coordinator) invokePrimary(ctx context.Context, req *models.ChatRequest, a agent.Agent, query string, rc *models.RequestContext, ck *chunker) (*models.AgentResponse, config.ModelTier, error) {
	restore, tier := c.primaryTierSwap(req, a)
	defer restore()

	resp, err := c.streamAgent(ctx, a, query, rc, ck)
	return resp, tier, err
}

// streamAgent prefers the streaming interface and falls back to a blocking
// call whose content is chunked after the fact, so consumers see the same
// stream shape either way.
func (c *Coordinator) streamAgent(ctx context.Context, a agent.Agent, query string, rc *models.RequestContext, ck *chunker) (*models.AgentResponse, error) {
	messages := messagesFor(rc, query)

	var resp *models.AgentResponse
	var err error
	if streamer, ok := a.(agent.Streamer); ok {
		resp, err = streamer.ProcessStream(ctx, messages, rc, func(delta string) {
			ck.Write(ctx, delta)
		})
	} else {
		resp, err = a.Process(ctx, messages, rc)
	}
	if err != nil {
		return nil, err
	}
	ck.Finish(ctx, resp.Content)
	return resp, nil
}

// primaryTierSwap decides the tier for the synthesis call: the caller's
// override when present, escalated per policy when the result lands on the
// policy's From tier. Returns the restore hook and the tier the call runs
// at. Quality beats latency for chat synthesis; everything else keeps the
// agent's own tier.
func (c *Coordinator) primaryTierSwap(req *models.ChatRequest, a agent.Agent) (func(), config.ModelTier) {
	ts, ok := a.(agent.TierSetter)
	if !ok {
		return func() {}, c.opts.Defaults.ModelTier
	}

	prior := ts.Tier()
	want := prior
	if req.ModelTier.IsValid() {
		want = req.ModelTier
	}
	if pol := c.opts.Escalation; pol.enabled() && want == pol.From {
		want = pol.To
	}
	if want == prior {
		return func() {}, prior
	}

	ts.SetTier(want)
	c.logger.Info("Swapped primary tier for synthesis", "from", prior, "to", want)
	return func() { ts.SetTier(prior) }, want
}

// pinTier forces an agent onto a tier, returning the restore hook.
func (c *Coordinator) pinTier(a agent.Agent, tier config.ModelTier) func() {
	ts, ok := a.(agent.TierSetter)
	if !ok {
		return func() {}
	}
	prior := ts.Tier()
	if prior == tier {
		return func() {}
	}
	ts.SetTier(tier)
	return func() { ts.SetTier(prior) }
}

func (c *Coordinator) responseLength(req *models.ChatRequest) config.ResponseLength {
	if req.ResponseLength.IsValid() {
		return req.ResponseLength
	}
	if c.opts.Defaults.ResponseLength.IsValid() {
		return c.opts.Defaults.ResponseLength
	}
	return config.ResponseVerbose
}

// ──────────────────────────────────────────────────────────────────────────
// Event delivery
//
// All emissions are best-effort: a failed delivery is logged and never
// aborts the run, and nothing at all is sent once the caller's context is
// cancelled.
// ──────────────────────────────────────────────────────────────────────────

func (c *Coordinator) progress(ctx context.Context, em *events.Emitter, value float64, message string) {
	if ctx.Err() != nil {
		return
	}
	if err := em.Progress(ctx, value, message); err != nil {
		c.logger.Warn("Progress event delivery failed", "error", err)
	}
}

func (c *Coordinator) agentStart(ctx context.Context, em *events.Emitter, role config.AgentRole, supporting bool) {
	if ctx.Err() != nil {
		return
	}
	if err := em.AgentStart(ctx, role, supporting); err != nil {
		c.logger.Warn("AgentStart event delivery failed", "role", role, "error", err)
	}
}

func (c *Coordinator) agentComplete(ctx context.Context, em *events.Emitter, role config.AgentRole, content string, meta models.ResponseMetadata) {
	if ctx.Err() != nil {
		return
	}
	if err := em.AgentComplete(ctx, role, content, meta); err != nil {
		c.logger.Warn("AgentComplete event delivery failed", "role", role, "error", err)
	}
}

func (c *Coordinator) interaction(ctx context.Context, em *events.Emitter, in models.Interaction) {
	if ctx.Err() != nil {
		return
	}
	if err := em.Interaction(ctx, in); err != nil {
		c.logger.Warn("Interaction event delivery failed", "error", err)
	}
}

func (c *Coordinator) errorEvent(ctx context.Context, em *events.Emitter, role config.AgentRole, message string) {
	if ctx.Err() != nil {
		return
	}
	if err := em.Error(ctx, role, message); err != nil {
		c.logger.Warn("Error event delivery failed", "role", role, "error", err)
	}
}

func (c *Coordinator) complete(ctx context.Context, em *events.Emitter, resp *models.MultiAgentResponse) {
	if ctx.Err() != nil {
		return
	}
	if err := em.Complete(ctx, *resp); err != nil {
		c.logger.Warn("Complete event delivery failed", "error", err)
	}
}

// ──────────────────────────────────────────────────────────────────────────
// Prompt and plan helpers
// ──────────────────────────────────────────────────────────────────────────

// supportingQuery is the shared prompt for the parallel fan-out: the user's
// question, the knowledge findings when any exist, and the insight budget.
func supportingQuery(query, knowledgeContent string) string {
	var sb strings.Builder
	sb.WriteString(query)
	if knowledgeContent != "" {
		sb.WriteString("\n\n# Retrieved Knowledge\n\n")
		sb.WriteString(knowledgeContent)
	}
	sb.WriteString("\n\n")
	sb.WriteString(prompt.SupportingInstruction())
	return sb.String()
}

// messagesFor appends the composed query as the final user turn.
func messagesFor(rc *models.RequestContext, query string) []models.AgentMessage {
	var history []models.AgentMessage
	if rc != nil {
		history = rc.History
	}
	messages := make([]models.AgentMessage, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, models.NewUserMessage(query))
	return messages
}

// fullDocumentHints mark a query as asking for output spanning every phase
// rather than the current one.
var fullDocumentHints = []string{
	"full document",
	"complete document",
	"entire document",
	"whole document",
	"full prd",
	"complete prd",
	"all phases",
}

func wantsFullDocument(query string) bool {
	q := strings.ToLower(query)
	for _, hint := range fullDocumentHints {
		if strings.Contains(q, hint) {
			return true
		}
	}
	return false
}

// gateSuggestions offers the quick follow-ups a UI can render under a
// gated acknowledgement.
func gateSuggestions(phaseName string) []string {
	if phaseName != "" {
		return []string{
			fmt.Sprintf("Summarise progress on the %s phase", phaseName),
			fmt.Sprintf("What should I do next in the %s phase?", phaseName),
			"Show me the full product picture so far",
		}
	}
	return []string{
		"Help me brainstorm product ideas",
		"Research the market for my product",
		"What should I work on next?",
	}
}

func containsRole(roles []config.AgentRole, want config.AgentRole) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}

func withoutRole(roles []config.AgentRole, drop config.AgentRole) []config.AgentRole {
	out := make([]config.AgentRole, 0, len(roles))
	for _, r := range roles {
		if r != drop {
			out = append(out, r)
		}
	}
	return out
}
