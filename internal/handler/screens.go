package handler

import (
	"fmt"
	"strings"

	"vpnstore/internal/chat"
	"vpnstore/internal/conversation"
	"vpnstore/internal/domain"
	"vpnstore/internal/format"
	"vpnstore/internal/service"
)

var (
	backToMenu  = chat.Row(chat.Btn("🏠 Main menu", "menu"))
	backToAdmin = chat.Row(chat.Btn("◀️ Admin panel", "adm"))
)

// menuView is what the main menu shows
type menuView struct {
	StoreName    string
	User         *domain.User
	IsAdmin      bool
	TrialEnabled bool
}

func mainMenu(v menuView) conversation.Reply {
	var b strings.Builder
	b.WriteString("🏠 " + format.Bold(v.StoreName) + "\n\n")
	b.WriteString("ID: " + format.Code(fmt.Sprint(v.User.ID)) + "\n")
	b.WriteString("Balance: " + format.Bold(format.Rupiah(v.User.Saldo)) + "\n")
	if v.User.IsReseller() {
		b.WriteString(format.Escape(fmt.Sprintf("Reseller level: %s (%d%% off)", v.User.Level, v.User.Discount())) + "\n")
	}
	b.WriteString("\n" + format.Escape("Choose an action:"))

	rows := [][]chat.Button{
		chat.Row(chat.Btn("🛒 Create account", "buy:create"), chat.Btn("♻️ Renew account", "buy:renew")),
	}
	if v.TrialEnabled {
		rows = append(rows, chat.Row(chat.Btn("🎁 Free trial", "trial")))
	}
	rows = append(rows, chat.Row(chat.Btn("💰 Deposit", "dep:new"), chat.Btn("💳 Balance", "bal")))
	if v.IsAdmin {
		rows = append(rows, chat.Row(chat.Btn("⚙️ Admin panel", "adm")))
	}
	return conversation.Reply{Message: chat.Message{Text: b.String(), Buttons: rows}}
}

func balanceScreen(u *domain.User) conversation.Reply {
	text := "💳 " + format.Escape("Your balance: ") + format.Bold(format.Rupiah(u.Saldo))
	if u.IsReseller() {
		text += "\n" + format.Escape("Commission earned: "+format.Rupiah(u.TotalCommission))
	}
	return conversation.Reply{Message: chat.Message{Text: text, Buttons: [][]chat.Button{backToMenu}}}
}

// protocolMenu lists the products; each button carries prefix:<protocol>
func protocolMenu(title, prefix string, protocols []domain.Protocol) conversation.Reply {
	var rows [][]chat.Button
	var row []chat.Button
	for _, p := range protocols {
		row = append(row, chat.Btn(p.Label(), prefix+":"+string(p)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, backToMenu)
	return conversation.Reply{Message: chat.Message{Text: format.Escape(title), Buttons: rows}}
}

func actionTitle(action domain.Action) string {
	if action == domain.ActionRenew {
		return "♻️ Renew which product?"
	}
	return "🛒 Which product do you want?"
}

// serverList shows one button per server; data builds each button's payload
func serverList(title string, servers []domain.Server, data func(domain.Server) string, back []chat.Button) conversation.Reply {
	rows := make([][]chat.Button, 0, len(servers)+1)
	for _, s := range servers {
		label := fmt.Sprintf("%s %s · %s/day", format.Flag(s.CountryCode), s.Name, format.Rupiah(s.Price))
		if s.MaxAccounts > 0 {
			label += fmt.Sprintf(" · %d/%d", s.TotalAccounts, s.MaxAccounts)
		}
		if s.Full() {
			label = "⛔ " + label
		}
		rows = append(rows, chat.Row(chat.Btn(label, data(s))))
	}
	rows = append(rows, back)
	return conversation.Reply{Message: chat.Message{Text: format.Escape(title), Buttons: rows}}
}

func adminPanel() conversation.Reply {
	rows := [][]chat.Button{
		chat.Row(chat.Btn("🖥 Servers", "adm:servers"), chat.Btn("➕ Add server", "adm:addsrv")),
		chat.Row(chat.Btn("💵 Top up user", "adm:topup"), chat.Btn("📣 Broadcast", "adm:broadcast")),
		chat.Row(chat.Btn("🤝 Promote reseller", "adm:promote"), chat.Btn("🏅 Reseller level", "adm:level")),
		chat.Row(chat.Btn("💾 Backup now", "adm:backup"), chat.Btn("🗂 Backups", "adm:backups")),
		chat.Row(chat.Btn("📥 Restore upload", "adm:restore"), chat.Btn("📊 Stats", "adm:stats")),
		backToMenu,
	}
	return conversation.Reply{Message: chat.Message{Text: "⚙️ " + format.Bold("Admin panel"), Buttons: rows}}
}

func serverDetail(s *domain.Server) conversation.Reply {
	var b strings.Builder
	b.WriteString(format.Flag(s.CountryCode) + " " + format.Bold(s.Name) + "\n")
	b.WriteString("Domain: " + format.Code(s.Domain) + "\n")
	b.WriteString(format.Escape(fmt.Sprintf("Price: %s/day", format.Rupiah(s.Price))) + "\n")
	b.WriteString(format.Escape(fmt.Sprintf("Quota: %d GB", s.QuotaGB)) + "\n")
	b.WriteString(format.Escape(fmt.Sprintf("IP limit: %d", s.IPLimit)) + "\n")
	b.WriteString(format.Escape(fmt.Sprintf("Accounts: %d/%d", s.TotalAccounts, s.MaxAccounts)))

	id := fmt.Sprint(s.ID)
	rows := [][]chat.Button{
		chat.Row(chat.Btn("💲 Price", "adm:edit:"+id+":"+string(domain.FieldPrice)), chat.Btn("📦 Quota", "adm:edit:"+id+":"+string(domain.FieldQuota))),
		chat.Row(chat.Btn("🔢 IP limit", "adm:edit:"+id+":"+string(domain.FieldIPLimit)), chat.Btn("👥 Max accounts", "adm:edit:"+id+":"+string(domain.FieldMaxAccounts))),
		chat.Row(chat.Btn("🗑 Delete", "adm:del:"+id)),
		chat.Row(chat.Btn("◀️ Servers", "adm:servers")),
	}
	return conversation.Reply{Message: chat.Message{Text: b.String(), Buttons: rows}}
}

func confirmDelete(s *domain.Server) conversation.Reply {
	id := fmt.Sprint(s.ID)
	text := format.Escape(fmt.Sprintf("Delete server %s? Accounts already sold stay on the host.", s.Name))
	return conversation.Reply{Message: chat.Message{Text: text, Buttons: [][]chat.Button{
		chat.Row(chat.Btn("✅ Delete", "adm:delok:"+id), chat.Btn("❌ Keep", "adm:srv:"+id)),
	}}}
}

func backupList(files []service.BackupFile) conversation.Reply {
	if len(files) == 0 {
		return conversation.Reply{Message: chat.Message{Text: format.Escape("No backups yet."), Buttons: [][]chat.Button{backToAdmin}}}
	}
	rows := make([][]chat.Button, 0, len(files)+1)
	for _, f := range files {
		rows = append(rows, chat.Row(
			chat.Btn("♻️ "+f.Name, "adm:rst:"+f.Name),
			chat.Btn("🗑", "adm:bdel:"+f.Name),
		))
	}
	rows = append(rows, backToAdmin)

	var b strings.Builder
	b.WriteString("🗂 " + format.Bold("Backups") + "\n")
	for _, f := range files {
		b.WriteString(format.Escape(fmt.Sprintf("%s  %s  %d KB", f.Name, f.ModTime.Format("2006-01-02 15:04"), f.Size/1024)) + "\n")
	}
	return conversation.Reply{Message: chat.Message{Text: b.String(), Buttons: rows}}
}

func statsScreen(st service.Stats) conversation.Reply {
	text := "📊 " + format.Bold("Stats") + "\n" + format.Escape(fmt.Sprintf(
		"Users: %d\nServers: %d\nActive accounts: %d\nPending deposits: %d\nOpen conversations: %d",
		st.Users, st.Servers, st.ActiveAccounts, st.PendingDeposits, st.Sessions,
	))
	return conversation.Reply{Message: chat.Message{Text: text, Buttons: [][]chat.Button{backToAdmin}}}
}

// notice is a short text screen with a single back button
func notice(text string, back []chat.Button) conversation.Reply {
	return conversation.Reply{Message: chat.Message{Text: format.Escape(text), Buttons: [][]chat.Button{back}}}
}
