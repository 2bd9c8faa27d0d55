package bot

import (
	"fmt"
	"refgate/entity"
	"strings"
)

const msgMustRegister = "Press /start first\\."

func welcomeMessage(required int, link string) string {
	return fmt.Sprintf(
		"Welcome\\!\n\n"+
			"Invite *%d* friends to get access to the private group\\.\n\n"+
			"Your link:\n%s\n\n"+
			"Check progress: /stats\n"+
			"Get access: /access",
		required, Sanitize(link),
	)
}

func statsMessage(stats *entity.Stats) string {
	msg := fmt.Sprintf("You invited: *%d/%d*", stats.Referrals, stats.Required)
	if stats.Admitted {
		msg += "\nYou already have access\\."
	}
	return msg
}

func accessMessage(result *entity.AccessResult, capacity int) string {
	switch result.Status {
	case entity.AccessMustRegister:
		return msgMustRegister
	case entity.AccessAlreadyAdmitted:
		return "You already received your link\\."
	case entity.AccessInsufficient:
		return fmt.Sprintf("You need *%d* more invitations\\.", result.Missing)
	case entity.AccessCapacityExceeded:
		return fmt.Sprintf("The limit of %d members has been reached\\.", capacity)
	case entity.AccessAdmitted:
		return fmt.Sprintf("Access granted\\!\n\nYour one\\-time link:\n%s", Sanitize(result.InviteLink))
	}
	return ""
}

func reportMessage(report *entity.Report) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*Members:* %d/%d\n\n", report.Admitted, report.Capacity))
	sb.WriteString(fmt.Sprintf("*Top %d:*\n", len(report.Leaderboard)))
	if len(report.Leaderboard) == 0 {
		sb.WriteString("no referrals yet\n")
	}
	for i, r := range report.Leaderboard {
		sb.WriteString(fmt.Sprintf("%d\\. `%d` \\- %d\n", i+1, r.UserId, r.ReferralCount))
	}
	return sb.String()
}

func helpMessage(isAdmin, bypass bool) string {
	var sb strings.Builder
	sb.WriteString("*Available Commands*\n\n")
	sb.WriteString("`/start` \\- Register and get your referral link\n")
	sb.WriteString("`/stats` \\- Show your referral progress\n")
	sb.WriteString("`/access` \\- Get the invite link once eligible\n")
	sb.WriteString("`/help` \\- Show this help\n")
	if isAdmin || bypass {
		sb.WriteString("`/alluser` \\- Get the invite link without referrals\n")
	}
	if isAdmin {
		sb.WriteString("\n*Admin Commands:*\n")
		sb.WriteString("`/admin` \\- Members count and top referrers\n")
	}
	return sb.String()
}
