package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"checkin-concierge-go/internal/config"
	"checkin-concierge-go/internal/db"
	"checkin-concierge-go/internal/ledger"
	"checkin-concierge-go/internal/models"
)

const usage = `Owner review CLI — list, approve, and reject generated drafts.

Usage:
    review              list pending drafts
    review show <id>    show full draft details
    review ok <id>      approve a draft
    review nok <id>     reject a draft (asks what was actually sent and why)
`

func main() {
	logrus.SetLevel(logrus.WarnLevel)

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	dbConn, err := db.Init(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}
	l := ledger.New(dbConn)

	if len(os.Args) < 2 {
		listPending(l)
		return
	}

	cmd := os.Args[1]
	if len(os.Args) < 3 {
		fmt.Print(usage)
		os.Exit(2)
	}

	id, err := strconv.ParseUint(os.Args[2], 10, 32)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid draft id %q\n", os.Args[2])
		os.Exit(2)
	}
	draftID := uint(id)

	switch cmd {
	case "show":
		showDraft(l, draftID)
	case "ok":
		approve(l, draftID)
	case "nok":
		reject(l, draftID)
	default:
		fmt.Print(usage)
		os.Exit(2)
	}
}

func listPending(l *ledger.Ledger) {
	drafts, err := l.GetPendingDrafts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list drafts: %v\n", err)
		os.Exit(1)
	}
	if len(drafts) == 0 {
		fmt.Println("No pending drafts.")
		return
	}

	fmt.Printf("\n%4s  %-16s  %-16s  %6s  Preview\n", "ID", "Step", "Intent", "Res.ID")
	fmt.Println(strings.Repeat("-", 80))
	for _, d := range drafts {
		preview := strings.ReplaceAll(d.Body, "\n", " ")
		if len(preview) > 50 {
			preview = preview[:50]
		}
		fmt.Printf("%4d  %-16s  %-16s  %6d  %s...\n", d.ID, d.Step, d.Intent, d.ReservationID, preview)
	}
	fmt.Println()
}

func showDraft(l *ledger.Ledger, draftID uint) {
	draft, err := l.GetDraft(draftID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to fetch draft: %v\n", err)
		os.Exit(1)
	}
	if draft == nil {
		fmt.Printf("Draft #%d not found.\n", draftID)
		return
	}

	req, err := l.GetRequest(draft.RequestID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to fetch parent request: %v\n", err)
	}

	sep := strings.Repeat("=", 60)
	fmt.Printf("\n%s\n", sep)
	fmt.Printf("  Draft #%d  |  %s  |  %s\n", draft.ID, draft.Step, draft.Intent)
	fmt.Printf("  Request: %s\n", draft.RequestID)
	fmt.Printf("  Reservation: %d\n", draft.ReservationID)
	if req != nil {
		msg := req.GuestMessage
		if len(msg) > 80 {
			msg = msg[:80]
		}
		fmt.Printf("  Guest message: %s\n", msg)
	}
	fmt.Printf("  Status: %s\n", draft.Verdict)
	fmt.Printf("  Created: %s\n", draft.CreatedAt)
	if draft.ReviewedAt != nil {
		fmt.Printf("  Reviewed: %s\n", draft.ReviewedAt)
	}
	fmt.Printf("%s\n\n%s\n\n", sep, draft.Body)
	if draft.ActualMessageSent != nil {
		fmt.Printf("  Actually sent: %s\n", *draft.ActualMessageSent)
	}
	if draft.OwnerComment != nil {
		fmt.Printf("  Comment: %s\n", *draft.OwnerComment)
	}
}

func approve(l *ledger.Ledger, draftID uint) {
	if !ensurePending(l, draftID) {
		return
	}
	if err := l.ReviewDraft(draftID, models.VerdictOK, nil, nil); err != nil {
		fmt.Fprintf(os.Stderr, "failed to approve draft: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Draft #%d approved.\n", draftID)
}

func reject(l *ledger.Ledger, draftID uint) {
	draft, err := l.GetDraft(draftID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to fetch draft: %v\n", err)
		os.Exit(1)
	}
	if draft == nil {
		fmt.Printf("Draft #%d not found.\n", draftID)
		return
	}
	if draft.Verdict != models.VerdictPending {
		fmt.Printf("Draft #%d already reviewed (%s).\n", draftID, draft.Verdict)
		return
	}

	fmt.Printf("\nDraft #%d (%s):\n%s\n\n", draftID, draft.Step, draft.Body)

	reader := bufio.NewReader(os.Stdin)
	actual := prompt(reader, "What did you actually send? (leave empty to skip): ")
	comment := prompt(reader, "Why did you change it? (leave empty to skip): ")

	if err := l.ReviewDraft(draftID, models.VerdictNOK, actual, comment); err != nil {
		fmt.Fprintf(os.Stderr, "failed to reject draft: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Draft #%d rejected.\n", draftID)
}

func ensurePending(l *ledger.Ledger, draftID uint) bool {
	draft, err := l.GetDraft(draftID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to fetch draft: %v\n", err)
		os.Exit(1)
	}
	if draft == nil {
		fmt.Printf("Draft #%d not found.\n", draftID)
		return false
	}
	if draft.Verdict != models.VerdictPending {
		fmt.Printf("Draft #%d already reviewed (%s).\n", draftID, draft.Verdict)
		return false
	}
	return true
}

func prompt(reader *bufio.Reader, question string) *string {
	fmt.Print(question)
	line, err := reader.ReadString('\n')
	if err != nil {
		return nil
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	return &line
}
