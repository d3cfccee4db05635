package gate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"checkin-concierge-go/internal/models"
)

// Deterministic keyword-based gate implementations. No network, no model
// calls; they recognise the most common French and English phrasings seen
// in real message threads and are the reference implementation for the
// contract tests.

var earlyCheckinPatterns = compileAll([]string{
	`\btôt\b`, `\btot\b`, `\bavant\b`,
	`\bearly\s+check.?in\b`, `\bcheck.?in\s+early\b`,
	`\bearlier\s+check.?in\b`, `\bcheck.?in\s+earlier\b`,
	`\bplus\s+tôt\b`, `\baccéder\s+plus\s+tôt\b`,
	`\barriver\s+(?:plus\s+)?tôt\b`, `\barriver\s+avant\b`,
	`\bdéposer\s+(?:nos|mes|les)\s+affaires\b`,
	`\bahead\s+of\s+time\b`,
	`\bearlier\b`,
})

var lateCheckoutPatterns = compileAll([]string{
	`\blate\s+check.?out\b`, `\bcheck.?out\s+(?:a\s+bit\s+)?later\b`,
	`\bcheck.?out\s+tard\b`,
	`\bquitter\s+(?:plus\s+)?tard\b`,
	`\brester\s+(?:\w+\s+){0,3}tard\b`, `\bpartir\s+(?:\w+\s+){0,3}tard\b`,
	`\blate\s+departure\b`,
	`\blib[eé]rer\b`,
	`\bne\s+lib[eé]rer\b`,
})

var yesPatterns = compileAll([]string{
	`\boui\b`, `\byes\b`, `\bpas de probl[eè]me\b`, `\bno problem\b`,
	`\bd'accord\b`, `\bok\b`, `\bparfait\b`, `\bsuper\b`,
	`\bc'est possible\b`, `\bpossible\b`, `\bça marche\b`,
})

var noPatterns = compileAll([]string{
	`\bnon\b`, `\bno\b`, `\bimpossible\b`, `\bne peut pas\b`,
	`\bcannot\b`, `\bcan't\b`, `\bdésolé\b`, `\bsorry\b`,
	`\bmalheureusement\b`, `\bunfortunately\b`,
})

// Matches "12h", "12:00", "12h30" plus the French/English words for noon
// and midnight.
var timePattern = regexp.MustCompile(`(\d{1,2})[h:](\d{0,2})|(\bmidi\b)|(\bnoon\b)|(\bminuit\b)`)

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

func matchAny(text string, patterns []*regexp.Regexp) bool {
	lower := strings.ToLower(text)
	for _, p := range patterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

func extractTime(text string) string {
	m := timePattern.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return ""
	}
	if m[3] != "" || m[4] != "" { // midi / noon
		return "12:00"
	}
	if m[5] != "" { // minuit
		return "00:00"
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// SimulatorClassifier is the keyword-based IntentClassifier. High confidence
// on a keyword match, low otherwise.
type SimulatorClassifier struct{}

func NewSimulatorClassifier() *SimulatorClassifier {
	return &SimulatorClassifier{}
}

func (s *SimulatorClassifier) Classify(_ context.Context, message string, _ models.ConversationContext) (models.ClassificationResult, error) {
	isEarly := matchAny(message, earlyCheckinPatterns)
	isLate := matchAny(message, lateCheckoutPatterns)
	extracted := extractTime(message)

	if isEarly && !isLate {
		result := models.ClassificationResult{
			Intent:        models.IntentEarlyCheckin,
			Confidence:    0.85,
			ExtractedTime: extracted,
		}
		if extracted == "" {
			result.NeedsFollowup = true
			result.FollowupQuestion = "À quelle heure souhaitez-vous arriver ?"
		}
		return result, nil
	}

	if isLate && !isEarly {
		result := models.ClassificationResult{
			Intent:        models.IntentLateCheckout,
			Confidence:    0.85,
			ExtractedTime: extracted,
		}
		if extracted == "" {
			result.NeedsFollowup = true
			result.FollowupQuestion = "À quelle heure souhaitez-vous quitter l'appartement ?"
		}
		return result, nil
	}

	confidence := 0.9
	if isEarly || isLate {
		// Both matched — ambiguous, not actionable.
		confidence = 0.4
	}
	return models.ClassificationResult{
		Intent:     models.IntentOther,
		Confidence: confidence,
	}, nil
}

// SimulatorAcknowledger composes the canned French acknowledgment.
type SimulatorAcknowledger struct{}

func NewSimulatorAcknowledger() *SimulatorAcknowledger {
	return &SimulatorAcknowledger{}
}

func (s *SimulatorAcknowledger) ComposeAcknowledgment(_ context.Context, classification models.ClassificationResult, convCtx models.ConversationContext) (models.ComposedReply, error) {
	reqLabel := "un départ tardif"
	if classification.Intent == models.IntentEarlyCheckin {
		reqLabel = "un check-in anticipé"
	}

	body := fmt.Sprintf(
		"Bonjour %s,\n\n"+
			"Nous avons bien reçu votre demande pour %s. "+
			"Nous allons faire tout notre possible pour y répondre favorablement. "+
			"Notre équipe de ménage est formidable pour réorganiser son planning "+
			"et faire des trajets supplémentaires afin d'optimiser son emploi du temps — "+
			"si c'est faisable, elle le fera !\n\n"+
			"Cependant, les changements le jour même peuvent être délicats car "+
			"l'équipe a besoin de suffisamment de temps pour préparer notre "+
			"appartement ainsi que d'autres logements dans le même créneau.\n\n"+
			"Nous vous tenons au courant dès que possible.\n\n"+
			"Cordialement",
		convCtx.GuestName, reqLabel,
	)
	return models.ComposedReply{Body: body, Confidence: 0.9}, nil
}

// SimulatorParser is the keyword-based ResponseParser.
type SimulatorParser struct{}

func NewSimulatorParser() *SimulatorParser {
	return &SimulatorParser{}
}

var cleanerTimePattern = regexp.MustCompile(`(\d{1,2})[h:](\d{0,2})`)

func extractCleanerTime(text string) string {
	m := cleanerTimePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func (s *SimulatorParser) Parse(_ context.Context, rawText string, _ models.ProcessedRequest) (models.ParsedResponse, error) {
	isYes := matchAny(rawText, yesPatterns)
	isNo := matchAny(rawText, noPatterns)
	proposed := extractCleanerTime(rawText)

	switch {
	case isYes && !isNo:
		return models.ParsedResponse{
			Answer:       models.AnswerYes,
			ProposedTime: proposed,
			Confidence:   0.85,
		}, nil
	case isNo && !isYes:
		return models.ParsedResponse{
			Answer:     models.AnswerNo,
			Confidence: 0.85,
		}, nil
	case isYes && isNo:
		// e.g. "oui mais pas avant 13h"
		return models.ParsedResponse{
			Answer:       models.AnswerConditional,
			Conditions:   truncate(rawText, 200),
			ProposedTime: proposed,
			Confidence:   0.6,
		}, nil
	default:
		return models.ParsedResponse{
			Answer:     models.AnswerUnclear,
			Conditions: truncate(rawText, 200),
			Confidence: 0.3,
		}, nil
	}
}

// SimulatorComposer is the template-based ReplyComposer.
type SimulatorComposer struct{}

func NewSimulatorComposer() *SimulatorComposer {
	return &SimulatorComposer{}
}

func (s *SimulatorComposer) Compose(_ context.Context, parsed models.ParsedResponse, original models.ProcessedRequest) (models.ComposedReply, error) {
	replyTime := parsed.ProposedTime
	if replyTime == "" {
		replyTime = original.RequestedTime
	}

	switch parsed.Answer {
	case models.AnswerYes:
		var outcome string
		if original.Intent == models.IntentEarlyCheckin {
			outcome = fmt.Sprintf("Un check-in anticipé à %s est possible.", replyTime)
		} else {
			outcome = fmt.Sprintf("Un départ tardif jusqu'à %s est possible.", replyTime)
		}
		body := fmt.Sprintf(
			"Bonjour %s,\n\n"+
				"Bonne nouvelle ! %s "+
				"Il n'y a aucun frais supplémentaire pour cela. "+
				"Certains voyageurs laissent un petit pourboire à l'équipe de "+
				"ménage qui rend cela possible — c'est absolument pas obligatoire, "+
				"juste un geste si vous le souhaitez.\n\n"+
				"Cordialement",
			original.GuestName, outcome,
		)
		return models.ComposedReply{Body: body, Confidence: 0.9}, nil

	case models.AnswerNo:
		var refusal, standard string
		if original.Intent == models.IntentEarlyCheckin {
			refusal = "un check-in anticipé n'est pas possible"
			standard = fmt.Sprintf("L'heure d'arrivée standard est %s.", original.OriginalTime)
		} else {
			refusal = "un départ tardif n'est pas possible"
			standard = fmt.Sprintf("L'heure de départ standard est %s.", original.OriginalTime)
		}
		body := fmt.Sprintf(
			"Bonjour %s,\n\n"+
				"Malheureusement, %s pour votre séjour. "+
				"Nous avons fait de notre mieux, mais les changements le jour même "+
				"sont parfois impossibles car l'équipe de ménage a besoin de "+
				"suffisamment de temps pour préparer plusieurs appartements. %s\n\n"+
				"Cordialement",
			original.GuestName, refusal, standard,
		)
		return models.ComposedReply{Body: body, Confidence: 0.9}, nil

	default:
		// conditional or unclear — the owner will rework this draft
		body := fmt.Sprintf(
			"Bonjour %s,\n\n"+
				"Nous avons transmis votre demande et revenons vers vous "+
				"dès que possible.\n\nCordialement",
			original.GuestName,
		)
		return models.ComposedReply{Body: body, Confidence: 0.4}, nil
	}
}
