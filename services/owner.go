package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"chatorder-backend/logic"
	"chatorder-backend/models"
)

const ownerHelp = "Comandos: /pausar, /reanudar, /ia on|off, /estado, /ignorar <id>, /atender <id>"

// BotStatus 老板查看的运行状态
type BotStatus struct {
	Paused         bool     `json:"paused"`
	AIEnabled      bool     `json:"ai_enabled"`
	ActiveSessions int      `json:"active_sessions"`
	Orders         int64    `json:"orders"`
	Revenue        int64    `json:"revenue"`
	Products       int      `json:"products"`
	Ignored        []string `json:"ignored"`
}

func (e *Engine) Status(ctx context.Context) (BotStatus, error) {
	st := BotStatus{ActiveSessions: e.Sessions.ActiveSessions(), Products: e.Index.Len()}
	var err error
	if st.Paused, err = e.BotState.IsPaused(ctx); err != nil {
		return st, err
	}
	if st.AIEnabled, err = e.BotState.AIEnabled(ctx); err != nil {
		return st, err
	}
	st.AIEnabled = st.AIEnabled && e.Responder != nil
	if st.Ignored, err = e.BotState.Ignored(ctx); err != nil {
		return st, err
	}
	stats, err := e.Orders.Stats()
	if err != nil {
		return st, err
	}
	st.Orders, st.Revenue = stats.Count, stats.Revenue
	return st, nil
}

// ownerCommand 老板可信，回复里带诊断信息
func (e *Engine) ownerCommand(ctx context.Context, text string) models.Reply {
	fields := strings.Fields(text)
	reply := func(s string) models.Reply {
		return models.Reply{Text: s, Intent: models.IntentOwnerCommand}
	}
	fail := func(err error) models.Reply {
		logrus.WithError(err).Error("❌ 老板指令执行失败")
		return reply("Error: " + err.Error())
	}

	switch strings.ToLower(fields[0]) {
	case "/pausar":
		if err := e.BotState.SetPaused(ctx, true); err != nil {
			return fail(err)
		}
		return reply("⏸️ Respuestas automáticas pausadas.")
	case "/reanudar":
		if err := e.BotState.SetPaused(ctx, false); err != nil {
			return fail(err)
		}
		return reply("▶️ Respuestas automáticas activas.")
	case "/ia":
		arg := strings.ToLower(parseOwnerArg(fields))
		if arg != "on" && arg != "off" {
			return reply("Uso: /ia on|off")
		}
		if err := e.BotState.SetAIEnabled(ctx, arg == "on"); err != nil {
			return fail(err)
		}
		if arg == "on" && e.Responder == nil {
			return reply("IA activada, pero no hay API key configurada.")
		}
		return reply("🤖 IA " + arg)
	case "/estado":
		st, err := e.Status(ctx)
		if err != nil {
			return fail(err)
		}
		return reply(statusText(st))
	case "/ignorar":
		id := parseOwnerArg(fields)
		if id == "" {
			return reply("Uso: /ignorar <id>")
		}
		if err := e.BotState.Ignore(ctx, id); err != nil {
			return fail(err)
		}
		return reply("🔕 Ignorando a " + id)
	case "/atender":
		id := parseOwnerArg(fields)
		if id == "" {
			return reply("Uso: /atender <id>")
		}
		if err := e.BotState.Unignore(ctx, id); err != nil {
			return fail(err)
		}
		return reply("🔔 Atendiendo de nuevo a " + id)
	}
	return reply(ownerHelp)
}

func statusText(st BotStatus) string {
	auto := "activas"
	if st.Paused {
		auto = "pausadas"
	}
	ai := "off"
	if st.AIEnabled {
		ai = "on"
	}
	return fmt.Sprintf("Respuestas: %s\nIA: %s\nSesiones activas: %d\nPedidos: %d (%s)\nProductos: %d\nIgnorados: %d",
		auto, ai, st.ActiveSessions, st.Orders, logic.FormatMoney(st.Revenue), st.Products, len(st.Ignored))
}
