package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/BuyBio/BuyBio/internal/model"
	"github.com/BuyBio/BuyBio/internal/screener"
)

var kst = time.FixedZone("KST", 9*3600)

func recommendationLabel(r model.Recommendation) string {
	if r == model.RecommendBuy {
		return "🟢 매수"
	}
	return "🔴 매도"
}

func levelLabel(l model.SignalLevel) string {
	switch l {
	case model.StrongBuy:
		return "강력매수"
	case model.Buy:
		return "매수"
	case model.WeakBuy:
		return "약매수"
	case model.WeakSell:
		return "약매도"
	case model.Sell:
		return "매도"
	case model.StrongSell:
		return "강력매도"
	default:
		return "중립"
	}
}

func candidateLine(rank int, c model.Candidate) string {
	return fmt.Sprintf("%d. <b>%s</b> %s원 (%+.2f%%) | 총점 %+.2f (단기 %+.2f / 중장기 %+.2f)\n",
		rank, html.EscapeString(c.Label()), formatPrice(c.Price), c.ChangeRate,
		c.Result.TotalScore, c.Result.ShortScore, c.Result.MidLongScore)
}

// formatPrice renders a KRW price with thousands separators.
func formatPrice(p float64) string {
	s := fmt.Sprintf("%.0f", p)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// FormatScreenReport formats a screening run: the top picks followed by one
// block per keyword section.
func FormatScreenReport(report *screener.Report, top []model.Candidate, sections []screener.Section) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>BuyBio 종목 추천</b> | %s\n", report.FinishedAt.In(kst).Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("분석 %d | 제외 %d | 실패 %d\n\n",
		len(report.Candidates), len(report.Skipped), len(report.Failed)))

	b.WriteString("🏆 <b>상위 종목</b>\n")
	if len(top) == 0 {
		b.WriteString("  추천 종목 없음\n")
	}
	for i, c := range top {
		b.WriteString(candidateLine(i+1, c))
	}

	for _, s := range sections {
		b.WriteString(fmt.Sprintf("\n🔖 <b>#%s</b>\n", html.EscapeString(s.Keyword)))
		if len(s.Candidates) == 0 {
			b.WriteString("  해당 종목 없음\n")
		}
		for i, c := range s.Candidates {
			b.WriteString(candidateLine(i+1, c))
		}
	}

	if len(report.Failed) > 0 {
		codes := make([]string, len(report.Failed))
		for i, f := range report.Failed {
			codes[i] = f.Instrument.Code
		}
		b.WriteString(fmt.Sprintf("\n⚠️ 조회 실패: %s\n", strings.Join(codes, ", ")))
	}
	return b.String()
}

// FormatCandidate formats the full factor breakdown of one instrument.
func FormatCandidate(c *model.Candidate) string {
	var b strings.Builder
	ind := c.Indicators

	b.WriteString(fmt.Sprintf("🔍 <b>%s</b> | %s 기준\n\n", html.EscapeString(c.Label()), c.LastDate.In(kst).Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("현재가: %s원 (%+.2f%%)\n", formatPrice(c.Price), c.ChangeRate))
	b.WriteString(fmt.Sprintf("DEMA5/20/%d: %.0f / %.0f / %.0f\n", ind.LongPeriod, ind.DEMA5, ind.DEMA20, ind.DEMA120))
	b.WriteString(fmt.Sprintf("MACD: %.2f (시그널 %.2f) | RSI: %.1f\n\n", ind.MACD, ind.MACDSignal, ind.RSI))

	b.WriteString("📈 <b>지표별 점수:</b>\n")
	for _, f := range c.Result.Factors {
		if f.Level == model.Neutral {
			continue
		}
		b.WriteString(fmt.Sprintf("  %s %s: %+.1f", f.Indicator, levelLabel(f.Level), f.Short+f.MidLong))
		if f.Commentary != "" {
			b.WriteString(" (" + html.EscapeString(f.Commentary) + ")")
		}
		b.WriteString("\n")
	}
	b.WriteString("  ─────────────────\n")
	b.WriteString(fmt.Sprintf("  단기 %+.2f | 중장기 %+.2f\n", c.Result.ShortScore, c.Result.MidLongScore))
	b.WriteString(fmt.Sprintf("  총점 %+.2f → %s\n", c.Result.TotalScore, recommendationLabel(c.Result.Recommendation)))
	return b.String()
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	var b strings.Builder
	b.WriteString("🤖 <b>BuyBio 명령어</b>\n\n")
	b.WriteString("/top [N] - 최근 스크리닝 상위 N개 종목\n")
	b.WriteString("/analyze 종목코드 - 단일 종목 분석\n")
	b.WriteString("/screen - 지금 스크리닝 실행\n")
	b.WriteString("/help - 도움말\n")
	return b.String()
}
