package mcp

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/trustloop/internal/constants"
	"github.com/nvandessel/trustloop/internal/models"
	"github.com/nvandessel/trustloop/internal/session"
)

const (
	tiersURI           = "trustloop://tiers"
	sessionURIPrefix   = "trustloop://sessions/"
	sessionURITemplate = sessionURIPrefix + "{id}"
)

// registerTools registers all trustloop MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "trust_status",
		Description: "Show the session's confidence, tier, reputation debt and pending approvals",
	}, s.handleTrustStatus)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "trust_tiers",
		Description: "List the six trust tiers with their confidence bands, privileges and enforcement modes",
	}, s.handleTrustTiers)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "trust_signals",
		Description: "List the signals that move confidence, and which are cooling down for the session",
	}, s.handleTrustSignals)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "trust_gate",
		Description: "Ask whether a tool call would be allowed at the session's current tier, without running it",
	}, s.handleTrustGate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "trust_history",
		Description: "Show recent evaluation passes for the session, newest first",
	}, s.handleTrustHistory)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "trust_approve",
		Description: "Apply boosts waiting for user approval. Only call this when the user has explicitly approved",
	}, s.handleTrustApprove)
}

// registerResources registers MCP resources for auto-loading into context.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         tiersURI,
		Name:        "trustloop-tiers",
		Description: "What each trust tier allows, so the agent knows what it may do at its current confidence.",
		MIMEType:    "text/markdown",
	}, s.handleTiersResource)

	s.server.AddResourceTemplate(&sdk.ResourceTemplate{
		URITemplate: sessionURITemplate,
		Name:        "trustloop-session",
		Description: "Current trust status of one session.",
		MIMEType:    "text/markdown",
	}, s.handleSessionResource)
}

// handleTiersResource renders the tier table as markdown.
func (s *Server) handleTiersResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	tiers := s.tiers()

	var sb strings.Builder
	sb.WriteString("# Trust tiers\n\n")
	sb.WriteString("| Tier | Confidence | Mode | Scratch | Edit | Write | Git | Rewrite |\n")
	sb.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, t := range tiers.Tiers {
		fmt.Fprintf(&sb, "| %s | %d-%d | %s | %s | %s | %s | %s | %s |\n",
			t.Tier, t.Min, t.Max, t.Mode,
			yesNo(t.Privileges.WriteScratch), yesNo(t.Privileges.Edit),
			yesNo(t.Privileges.WriteProduction), yesNo(t.Privileges.GitWrite),
			yesNo(t.Privileges.RewriteHistory))
	}
	fmt.Fprintf(&sb, "\nWhile reputation debt is owed the tier is capped at %s. ", tiers.DebtCap)
	sb.WriteString("Irrevocable commands are blocked at every tier.\n")

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{URI: tiersURI, MIMEType: "text/markdown", Text: sb.String()},
		},
	}, nil
}

// handleSessionResource renders one session's status as markdown.
func (s *Server) handleSessionResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	uri := req.Params.URI
	if !strings.HasPrefix(uri, sessionURIPrefix) {
		return nil, fmt.Errorf("invalid URI format: %s", uri)
	}
	id, err := url.PathUnescape(strings.TrimPrefix(uri, sessionURIPrefix))
	if err != nil || id == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	st, err := s.app.Status(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Session %s\n\n%s\n", st.SessionID, st.Summary())
	if len(st.PendingApprovals) > 0 {
		sb.WriteString("\n## Awaiting approval\n\n")
		for _, p := range st.PendingApprovals {
			fmt.Fprintf(&sb, "- %s (%+d, turn %d)\n", p.Signal, p.Delta, p.Turn)
		}
	}
	if len(st.CoolingDown) > 0 {
		sb.WriteString("\n## Cooling down\n\n")
		for _, c := range st.CoolingDown {
			fmt.Fprintf(&sb, "- %s: %d more turns\n", c.Name, c.Remaining)
		}
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{URI: uri, MIMEType: "text/markdown", Text: sb.String()},
		},
	}, nil
}

// handleTrustStatus implements the trust_status tool.
func (s *Server) handleTrustStatus(ctx context.Context, req *sdk.CallToolRequest, args SessionInput) (_ *sdk.CallToolResult, _ TrustStatusOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("trust_status", start, retErr, sanitizeToolParams(map[string]interface{}{
			"session_id": args.SessionID,
		}))
	}()

	if err := s.toolLimiters.Check("trust_status"); err != nil {
		return nil, TrustStatusOutput{}, err
	}

	st, err := s.app.Status(ctx, args.SessionID)
	if err != nil {
		return nil, TrustStatusOutput{}, fmt.Errorf("failed to load session: %w", err)
	}
	return nil, statusOutput(st), nil
}

// handleTrustTiers implements the trust_tiers tool.
func (s *Server) handleTrustTiers(ctx context.Context, req *sdk.CallToolRequest, args TrustTiersInput) (_ *sdk.CallToolResult, _ TrustTiersOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("trust_tiers", start, retErr, nil)
	}()

	if err := s.toolLimiters.Check("trust_tiers"); err != nil {
		return nil, TrustTiersOutput{}, err
	}
	return nil, s.tiers(), nil
}

func (s *Server) tiers() TrustTiersOutput {
	out := TrustTiersOutput{
		DebtCap:     s.app.Config.Tiers.DebtCap.String(),
		Irrevocable: s.app.Config.Tiers.Irrevocable,
	}
	for _, b := range s.app.Engine.Policy().Bands() {
		d := s.app.Engine.Policy().Decide(b.Min, 0)
		out.Tiers = append(out.Tiers, TierRow{
			Tier:       b.Tier.String(),
			Min:        b.Min,
			Max:        b.Max,
			Mode:       string(d.Mode),
			Privileges: d.Privileges,
		})
	}
	return out
}

// handleTrustSignals implements the trust_signals tool.
func (s *Server) handleTrustSignals(ctx context.Context, req *sdk.CallToolRequest, args SessionInput) (_ *sdk.CallToolResult, _ TrustSignalsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("trust_signals", start, retErr, sanitizeToolParams(map[string]interface{}{
			"session_id": args.SessionID,
		}))
	}()

	if err := s.toolLimiters.Check("trust_signals"); err != nil {
		return nil, TrustSignalsOutput{}, err
	}

	st, err := s.app.Status(ctx, args.SessionID)
	if err != nil {
		return nil, TrustSignalsOutput{}, fmt.Errorf("failed to load session: %w", err)
	}
	remaining := make(map[string]int, len(st.CoolingDown))
	for _, c := range st.CoolingDown {
		remaining[c.Name] = c.Remaining
	}

	defs := s.app.Engine.Catalog().Definitions()
	out := TrustSignalsOutput{Signals: make([]SignalItem, 0, len(defs)), Count: len(defs)}
	for _, d := range defs {
		item := signalItem(d)
		item.Remaining = remaining[d.Name]
		out.Signals = append(out.Signals, item)
	}
	return nil, out, nil
}

// handleTrustGate implements the trust_gate tool. It is a dry run: nothing
// is recorded and state is not changed.
func (s *Server) handleTrustGate(ctx context.Context, req *sdk.CallToolRequest, args TrustGateInput) (_ *sdk.CallToolResult, _ TrustGateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("trust_gate", start, retErr, sanitizeToolParams(map[string]interface{}{
			"session_id": args.SessionID,
			"tool_name":  args.ToolName,
			"command":    args.Command,
			"file_path":  args.FilePath,
		}))
	}()

	if err := s.toolLimiters.Check("trust_gate"); err != nil {
		return nil, TrustGateOutput{}, err
	}
	if args.ToolName == "" {
		return nil, TrustGateOutput{}, fmt.Errorf("tool_name is required")
	}

	st, err := s.app.Status(ctx, args.SessionID)
	if err != nil {
		return nil, TrustGateOutput{}, fmt.Errorf("failed to load session: %w", err)
	}
	c := models.Context{
		Event:    models.EventPreToolUse,
		ToolName: args.ToolName,
		Command:  args.Command,
		FilePath: args.FilePath,
	}
	return nil, gateOutput(s.app.Gate.Check(st.Decision, c)), nil
}

// handleTrustHistory implements the trust_history tool.
func (s *Server) handleTrustHistory(ctx context.Context, req *sdk.CallToolRequest, args TrustHistoryInput) (_ *sdk.CallToolResult, _ TrustHistoryOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("trust_history", start, retErr, sanitizeToolParams(map[string]interface{}{
			"session_id": args.SessionID,
			"limit":      args.Limit,
		}))
	}()

	if err := s.toolLimiters.Check("trust_history"); err != nil {
		return nil, TrustHistoryOutput{}, err
	}

	limit := args.Limit
	if limit <= 0 {
		limit = constants.HistoryDefaultLimit
	}
	recs, err := s.app.Recent(ctx, args.SessionID, limit)
	if err != nil {
		return nil, TrustHistoryOutput{}, fmt.Errorf("failed to read history: %w", err)
	}
	if recs == nil {
		recs = []session.PassRecord{}
	}
	return nil, TrustHistoryOutput{Passes: recs, Count: len(recs)}, nil
}

// handleTrustApprove implements the trust_approve tool.
func (s *Server) handleTrustApprove(ctx context.Context, req *sdk.CallToolRequest, args SessionInput) (_ *sdk.CallToolResult, _ TrustApproveOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("trust_approve", start, retErr, sanitizeToolParams(map[string]interface{}{
			"session_id": args.SessionID,
		}))
	}()

	if err := s.toolLimiters.Check("trust_approve"); err != nil {
		return nil, TrustApproveOutput{}, err
	}

	res, err := s.app.Approve(ctx, args.SessionID)
	if err != nil {
		return nil, TrustApproveOutput{}, err
	}
	return nil, approveOutput(res), nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
