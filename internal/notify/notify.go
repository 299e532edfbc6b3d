// Package notify raises Slack alerts for high risk findings. The notifier
// is optional; without a token the pipeline simply runs without alerts.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"

	"github.com/svcaudit/vigil/internal/analysis"
)

type Notifier struct {
	api     *slack.Client
	channel string
	logger  *slog.Logger
}

func New(token, channel string, logger *slog.Logger) *Notifier {
	return &Notifier{
		api:     slack.New(token),
		channel: channel,
		logger:  logger,
	}
}

// AlertHighRisk posts a finding summary to the review channel.
func (n *Notifier) AlertHighRisk(ctx context.Context, r *analysis.Result) error {
	text := formatAlert(r)

	_, ts, err := n.api.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		return fmt.Errorf("post alert: %w", err)
	}

	n.logger.Info("high risk alert posted", "work_id", r.WorkID, "ts", ts)
	return nil
}

func formatAlert(r *analysis.Result) string {
	j := r.Judgement

	var b strings.Builder
	fmt.Fprintf(&b, ":rotating_light: *高风险工单 %d*\n", r.WorkID)
	fmt.Fprintf(&b, "风险等级: %s | 置信度: %.2f", j.RiskLevel, j.Confidence)
	if len(j.EvasionTypes) > 0 {
		fmt.Fprintf(&b, " | 类型: %s", strings.Join(j.EvasionTypes, "、"))
	}
	b.WriteString("\n")

	for i, s := range j.EvidenceSentences {
		if i == 3 {
			fmt.Fprintf(&b, "> …另有 %d 条证据\n", len(j.EvidenceSentences)-3)
			break
		}
		fmt.Fprintf(&b, "> %s\n", s)
	}
	if len(j.Suggestions) > 0 {
		fmt.Fprintf(&b, "建议: %s", j.Suggestions[0])
	}
	return b.String()
}
