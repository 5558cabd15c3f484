package generator

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"career-report-workers/internal/assistant"
	"career-report-workers/internal/common/config"
	"career-report-workers/internal/common/errors"
	"career-report-workers/internal/common/logger"
	"career-report-workers/internal/common/metrics"
	"career-report-workers/internal/report"
	"career-report-workers/internal/template"
)

const (
	// answerOnlyInstruction is appended to every thread's opening message so
	// the assistant returns content, not narration about producing it.
	answerOnlyInstruction = "IMPORTANT: Do NOT mention the process. Do NOT say phrases like 'To create your personalized introduction...' or 'I will analyze...'. Just give me the final answer in a concise, cohesive format, with no filler.\n"

	// restrictionFailureMessage is stored as the section response when a run
	// ends failed or cancelled for a non-recoverable provider reason.
	restrictionFailureMessage = "Failed due to OpenAI restrictions."

	// rateLimitTimeoutMessage is stored when polling or rate-limit retries
	// are exhausted for a section.
	rateLimitTimeoutMessage = "OpenAI rate limits are too strict. Please try again later."

	// retrievalFailureMessage is stored when a transport error keeps a run
	// or its reply from being fetched. The section degrades and the job
	// moves on to the next one.
	retrievalFailureMessage = "Error retrieving response. Please try again later."

	// oversizeMarker appears in the run's last_error message when the
	// expanded prompt exceeds the model context window. No retry with the
	// same context can succeed, so the whole job aborts.
	oversizeMarker = "Request too large for"

	rateLimitErrorCode = "rate_limit_exceeded"
)

// AssistantClient is the thread/run protocol surface the orchestrator
// drives.
type AssistantClient interface {
	CreateThread(ctx context.Context, initialMessage string) (string, error)
	CreateRun(ctx context.Context, threadID string) (string, error)
	GetRun(ctx context.Context, threadID, runID string) (*assistant.Run, error)
	LatestAssistantMessage(ctx context.Context, threadID string) (string, error)
}

// ReportStore is the report persistence surface the orchestrator needs.
type ReportStore interface {
	Get(ctx context.Context, id string) (*report.Report, error)
	SetProcessedTemplate(ctx context.Context, id string, processed json.RawMessage) error
	AppendSection(ctx context.Context, id, sectionID string, section report.SectionContent) error
	SetStatus(ctx context.Context, id string, status report.Status) error
	AppendLog(ctx context.Context, id, line string) error
}

// StudentSource resolves the report's student row.
type StudentSource interface {
	StudentByID(ctx context.Context, id string) (*report.Student, error)
}

// TemplateSource provides the fallback template for reports created
// without one.
type TemplateSource interface {
	DefaultTemplate(ctx context.Context) (*report.Template, error)
}

// Orchestrator generates a report section by section. Sections run
// strictly in order and each finished section is persisted before the next
// starts, so an interrupted job loses at most the section in flight.
type Orchestrator struct {
	assistant AssistantClient
	reports   ReportStore
	students  StudentSource
	templates TemplateSource
	builder   *Builder
	expander  *Expander
	cfg       config.GenerationConfig
	logger    logger.Logger

	// sleep is swapped for a recorder in tests
	sleep func(ctx context.Context, d time.Duration) error
}

func NewOrchestrator(
	assistantClient AssistantClient,
	reports ReportStore,
	students StudentSource,
	templates TemplateSource,
	builder *Builder,
	expander *Expander,
	cfg config.GenerationConfig,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		assistant: assistantClient,
		reports:   reports,
		students:  students,
		templates: templates,
		builder:   builder,
		expander:  expander,
		cfg:       cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "orchestrator"}),
		sleep:     sleepContext,
	}
}

// GenerateReport runs the full pipeline for one report: build context,
// expand the template, then generate and persist each section in order.
func (o *Orchestrator) GenerateReport(ctx context.Context, reportID string) error {
	log := o.logger.WithFields(map[string]interface{}{"reportId": reportID})

	r, err := o.reports.Get(ctx, reportID)
	if err != nil {
		return err
	}
	if err := o.reports.SetStatus(ctx, reportID, report.StatusProcessing); err != nil {
		return err
	}

	student, err := o.students.StudentByID(ctx, r.StudentID)
	if err != nil {
		return o.failReport(ctx, reportID, err)
	}

	genCtx, err := o.builder.BuildContext(ctx, r.OnetSocCode, student.AccountID, student.DisplayName())
	if err != nil {
		return o.failReport(ctx, reportID, err)
	}

	sections, err := o.resolveSections(ctx, r, genCtx)
	if err != nil {
		return o.failReport(ctx, reportID, err)
	}

	for _, section := range sections {
		if o.cfg.SkipCompletedSections {
			if _, done := r.Content[section.ID]; done {
				log.Info("section already generated, skipping", map[string]interface{}{"section": section.ID})
				_ = o.reports.AppendLog(ctx, reportID, fmt.Sprintf("section %s skipped: already generated", section.ID))
				continue
			}
		}

		if err := o.generateSection(ctx, reportID, section, genCtx, log); err != nil {
			return o.failReport(ctx, reportID, err)
		}
	}

	if err := o.reports.SetStatus(ctx, reportID, report.StatusCompleted); err != nil {
		return err
	}
	log.Info("report completed", nil)
	return nil
}

// resolveSections loads the sections to generate. A previously processed
// template wins so a resumed job keeps its original expanded prompts.
func (o *Orchestrator) resolveSections(ctx context.Context, r *report.Report, genCtx *Context) ([]template.Section, error) {
	if len(r.ProcessedTemplate) > 0 {
		return template.Parse(r.ProcessedTemplate)
	}

	body := r.ReportTemplate
	if len(body) == 0 {
		tpl, err := o.templates.DefaultTemplate(ctx)
		if err != nil {
			return nil, err
		}
		body = tpl.Body
	}

	sections, err := template.Parse(body)
	if err != nil {
		return nil, err
	}

	expanded := o.expander.Expand(sections, genCtx)
	processed, err := json.Marshal(expanded)
	if err != nil {
		return nil, errors.NewTemplateValidationFailedError(fmt.Sprintf("encode processed template: %v", err))
	}
	if err := o.reports.SetProcessedTemplate(ctx, r.ID, processed); err != nil {
		return nil, err
	}
	return expanded, nil
}

func (o *Orchestrator) generateSection(ctx context.Context, reportID string, section template.Section, genCtx *Context, log logger.Logger) error {
	started := time.Now()
	content := report.SectionContent{
		Title:       section.Title,
		SubTitle:    section.SubTitle,
		Description: section.Description,
	}

	// a derived description and a prompt are independent; a section may
	// carry both
	if section.DescriptionFn != "" {
		content.Description = o.computeDescription(section, genCtx)
	}

	outcome := "completed"
	switch section.Kind() {
	case template.KindPrompt:
		if strings.TrimSpace(section.Prompt) == "" {
			// expansion can empty a prompt; persist with no assistant call
			break
		}
		text, err := o.runPrompt(ctx, section, genCtx, log)
		if err != nil {
			metrics.SectionsGenerated.WithLabelValues(section.ID, "aborted").Inc()
			return err
		}
		switch text {
		case restrictionFailureMessage, rateLimitTimeoutMessage, retrievalFailureMessage:
			content.Response = text
			outcome = "failed"
			_ = o.reports.AppendLog(ctx, reportID, fmt.Sprintf("section %s failed: %s", section.ID, text))
		default:
			content = parseResponse(content, text)
			if content.ParseError {
				outcome = "parse_error"
				_ = o.reports.AppendLog(ctx, reportID, fmt.Sprintf("section %s response is not valid JSON, stored raw", section.ID))
			}
		}

	case template.KindComputed, template.KindStatic:
		// nothing to generate, the resolved fields are the content
	}

	if err := o.reports.AppendSection(ctx, reportID, section.ID, content); err != nil {
		return err
	}

	metrics.SectionsGenerated.WithLabelValues(section.ID, outcome).Inc()
	metrics.SectionDuration.WithLabelValues(section.ID).Observe(time.Since(started).Seconds())
	log.Info("section persisted", map[string]interface{}{
		"section": section.ID,
		"kind":    section.Kind().String(),
		"outcome": outcome,
	})
	return nil
}

func (o *Orchestrator) computeDescription(section template.Section, genCtx *Context) string {
	switch section.DescriptionFn {
	case "format_education":
		return FormatEducation(genCtx.Education())
	default:
		// unreachable, template.Parse rejects unknown names
		return ""
	}
}

// rateLimitState tracks consecutive rate-limit hits for one section across
// run-level and transport-level 429s.
type rateLimitState struct {
	consecutive  int
	cooldownUsed bool
}

// runPrompt drives one section through the thread/run protocol and returns
// the assistant's reply, or one of the marker strings when the section
// degrades. An oversize prompt returns an error that aborts the whole job;
// every other provider failure resolves to a marker so the remaining
// sections still generate.
func (o *Orchestrator) runPrompt(ctx context.Context, section template.Section, genCtx *Context, log logger.Logger) (string, error) {
	message := fmt.Sprintf("The student's name is %s.\n\n%s\n\n%s",
		genCtx.DisplayName(), section.Prompt, answerOnlyInstruction)

	var rl rateLimitState
	threadID := ""

	for {
		if threadID == "" {
			id, err := o.assistant.CreateThread(ctx, message)
			if err != nil {
				marker, retry, herr := o.handleTransportError(ctx, &rl, err, section.ID, log)
				if herr != nil {
					return "", herr
				}
				if retry {
					continue
				}
				return marker, nil
			}
			threadID = id
		}

		runID, err := o.assistant.CreateRun(ctx, threadID)
		if err != nil {
			marker, retry, herr := o.handleTransportError(ctx, &rl, err, section.ID, log)
			if herr != nil {
				return "", herr
			}
			if retry {
				continue
			}
			return marker, nil
		}

		run, err := o.pollRun(ctx, threadID, runID)
		if err != nil {
			marker, retry, herr := o.handleTransportError(ctx, &rl, err, section.ID, log)
			if herr != nil {
				return "", herr
			}
			if retry {
				continue
			}
			return marker, nil
		}
		if run == nil {
			// run never reached a terminal status within the poll limit
			log.Warn("run polling exhausted", map[string]interface{}{"section": section.ID})
			return rateLimitTimeoutMessage, nil
		}

		switch run.Status {
		case assistant.StatusCompleted:
			text, err := o.assistant.LatestAssistantMessage(ctx, threadID)
			if err != nil {
				log.Warn("assistant reply retrieval failed", map[string]interface{}{
					"section": section.ID,
					"error":   err.Error(),
				})
				return retrievalFailureMessage, nil
			}
			return text, nil

		case assistant.StatusFailed, assistant.StatusCancelled, assistant.StatusExpired:
			if run.LastError != nil && strings.Contains(run.LastError.Message, oversizeMarker) {
				return "", errors.NewRequestTooLargeError(section.ID)
			}

			if run.LastError != nil && run.LastError.Code == rateLimitErrorCode {
				marker, err := o.rateLimitBackoff(ctx, &rl, run.RetryAfter, section.ID, log)
				if err != nil {
					return "", err
				}
				if marker != "" {
					return marker, nil
				}
				continue
			}

			return restrictionFailureMessage, nil
		}
	}
}

// handleTransportError classifies a failed assistant request. Rate-limited
// requests back off and signal a retry; anything else degrades the section
// to the retrieval failure marker. Only a sleep interrupted by cancellation
// comes back as an error.
func (o *Orchestrator) handleTransportError(ctx context.Context, rl *rateLimitState, cause error, sectionID string, log logger.Logger) (string, bool, error) {
	var stdErr *errors.StandardError
	if stderrors.As(cause, &stdErr) && stdErr.Code == errors.ErrCodeRateLimitExceeded {
		marker, err := o.rateLimitBackoff(ctx, rl, errors.RetryAfterHint(stdErr), sectionID, log)
		if err != nil {
			return "", false, err
		}
		if marker != "" {
			return marker, false, nil
		}
		return "", true, nil
	}

	log.Warn("assistant request failed", map[string]interface{}{
		"section": sectionID,
		"error":   cause.Error(),
	})
	return retrievalFailureMessage, false, nil
}

// rateLimitBackoff sleeps before the next attempt, honoring an upstream
// Retry-After hint. Every third consecutive hit spends the single long
// cooldown; once that is used up the section resolves to the timeout
// marker. An empty return means retry.
func (o *Orchestrator) rateLimitBackoff(ctx context.Context, rl *rateLimitState, retryAfter time.Duration, sectionID string, log logger.Logger) (string, error) {
	metrics.AssistantRateLimits.Inc()
	rl.consecutive++

	if rl.consecutive >= o.cfg.RateLimitMaxRetries {
		if rl.cooldownUsed {
			log.Warn("rate limit retries exhausted", map[string]interface{}{"section": sectionID})
			return rateLimitTimeoutMessage, nil
		}
		rl.cooldownUsed = true
		rl.consecutive = 0
		log.Warn("rate limit cooldown", map[string]interface{}{
			"section":    sectionID,
			"cooldownMs": o.cfg.RateLimitCooldownMs,
		})
		if err := o.sleep(ctx, time.Duration(o.cfg.RateLimitCooldownMs)*time.Millisecond); err != nil {
			return "", err
		}
		return "", nil
	}

	delay := retryAfter
	if delay <= 0 {
		delay = time.Duration(1<<uint(rl.consecutive)) * time.Second
	}
	if err := o.sleep(ctx, delay); err != nil {
		return "", err
	}
	return "", nil
}

// pollRun waits for the run to reach a terminal status. The wait starts at
// the configured initial interval and grows by the increment up to the cap.
// Returns (nil, nil) when the attempts run out.
func (o *Orchestrator) pollRun(ctx context.Context, threadID, runID string) (*assistant.Run, error) {
	wait := time.Duration(o.cfg.PollInitialMs) * time.Millisecond
	increment := time.Duration(o.cfg.PollIncrementMs) * time.Millisecond
	maxWait := time.Duration(o.cfg.PollMaxMs) * time.Millisecond

	for attempt := 1; attempt <= o.cfg.PollMaxAttempts; attempt++ {
		if err := o.sleep(ctx, wait); err != nil {
			return nil, err
		}

		run, err := o.assistant.GetRun(ctx, threadID, runID)
		if err != nil {
			return nil, err
		}
		if run.Status.Terminal() {
			metrics.AssistantPollAttempts.WithLabelValues("terminal").Observe(float64(attempt))
			return run, nil
		}

		wait += increment
		if wait > maxWait {
			wait = maxWait
		}
	}

	metrics.AssistantPollAttempts.WithLabelValues("exhausted").Observe(float64(o.cfg.PollMaxAttempts))
	return nil, nil
}

// failReport marks the report failed, keeping every section persisted so
// far. The original error is returned for the job layer's retry decision.
func (o *Orchestrator) failReport(ctx context.Context, reportID string, cause error) error {
	_ = o.reports.AppendLog(ctx, reportID, fmt.Sprintf("generation failed: %v", cause))
	if err := o.reports.SetStatus(ctx, reportID, report.StatusFailed); err != nil {
		o.logger.Error("failed to mark report failed", map[string]interface{}{
			"reportId": reportID,
			"error":    err.Error(),
		})
	}
	return cause
}

// parseResponse strips markdown code fences and decodes the reply as JSON.
// Replies that are not JSON are kept verbatim with the parse_error flag so
// nothing the assistant produced is lost.
func parseResponse(content report.SectionContent, text string) report.SectionContent {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var parsed interface{}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		content.Raw = text
		content.ParseError = true
		return content
	}
	content.Response = parsed
	return content
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
