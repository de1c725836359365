package handler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"vpnstore/internal/chat"
	"vpnstore/internal/conversation"
	"vpnstore/internal/domain"
)

var backToServers = chat.Row(chat.Btn("◀️ Servers", "adm:servers"))

// handleAdminCallback routes adm:* presses. The caller checked the sender is an admin.
func (h *Handler) handleAdminCallback(ctx context.Context, in conversation.Input, args []string) ([]conversation.Reply, error) {
	if len(args) == 0 {
		h.engine.Cancel(in.ChatID)
		return edited(adminPanel()), nil
	}

	switch args[0] {
	case "servers":
		servers, err := h.svc.Servers.List(ctx)
		if err != nil {
			return nil, err
		}
		if len(servers) == 0 {
			return edited(notice("No servers yet. Add one first.", backToAdmin)), nil
		}
		return edited(serverList("🖥 Servers", servers, func(s domain.Server) string {
			return fmt.Sprintf("adm:srv:%d", s.ID)
		}, backToAdmin)), nil

	case "srv", "del":
		server, err := h.serverArg(ctx, args)
		if err != nil {
			return nil, err
		}
		if args[0] == "del" {
			return edited(confirmDelete(server)), nil
		}
		return edited(serverDetail(server)), nil

	case "delok":
		if len(args) != 2 {
			return nil, errBadCallback
		}
		id, ok := parseID(args[1])
		if !ok {
			return nil, errBadCallback
		}
		if err := h.svc.Servers.Delete(ctx, id); err != nil {
			return nil, err
		}
		h.logger.Info("Server deleted", zap.Int64("server_id", id), zap.Int64("admin_id", in.UserID))
		return edited(notice(fmt.Sprintf("🗑 Server %d deleted.", id), backToServers)), nil

	case "edit":
		if len(args) != 3 {
			return nil, errBadCallback
		}
		id, ok := parseID(args[1])
		field, okField := domain.ParseServerField(args[2])
		if !ok || !okField {
			return nil, errBadCallback
		}
		return h.engine.BeginEditField(ctx, in.ChatID, in.UserID, id, field)

	case "addsrv":
		return h.engine.BeginAddServer(ctx, in.ChatID, in.UserID)
	case "topup":
		return h.engine.BeginTopUp(ctx, in.ChatID, in.UserID)
	case "broadcast":
		return h.engine.BeginBroadcast(ctx, in.ChatID, in.UserID)
	case "promote":
		return h.engine.BeginPromote(ctx, in.ChatID, in.UserID)
	case "level":
		return h.engine.BeginSetLevel(ctx, in.ChatID, in.UserID)
	case "restore":
		return h.engine.BeginRestore(ctx, in.ChatID, in.UserID)

	case "backup":
		name, err := h.svc.Backups.Backup(ctx)
		if err != nil {
			return nil, err
		}
		return edited(notice("💾 Backup created: "+name, backToAdmin)), nil

	case "backups":
		return h.backupScreen(ctx)

	case "rst":
		if len(args) != 2 {
			return nil, errBadCallback
		}
		if err := h.svc.Backups.Restore(ctx, args[1]); err != nil {
			return nil, err
		}
		h.logger.Info("Database restored from backup", zap.String("name", args[1]), zap.Int64("admin_id", in.UserID))
		return edited(notice("♻️ Database restored from "+args[1], backToAdmin)), nil

	case "bdel":
		if len(args) != 2 {
			return nil, errBadCallback
		}
		if err := h.svc.Backups.Delete(ctx, args[1]); err != nil {
			return nil, err
		}
		return h.backupScreen(ctx)

	case "stats":
		st, err := h.svc.Stats.Summary(ctx)
		if err != nil {
			return nil, err
		}
		return edited(statsScreen(st)), nil
	}
	return nil, errBadCallback
}

func (h *Handler) serverArg(ctx context.Context, args []string) (*domain.Server, error) {
	if len(args) != 2 {
		return nil, errBadCallback
	}
	id, ok := parseID(args[1])
	if !ok {
		return nil, errBadCallback
	}
	return h.svc.Servers.Get(ctx, id)
}

func (h *Handler) backupScreen(ctx context.Context) ([]conversation.Reply, error) {
	files, err := h.svc.Backups.List(ctx)
	if err != nil {
		return nil, err
	}
	return edited(backupList(files)), nil
}
