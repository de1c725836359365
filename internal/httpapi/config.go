package httpapi

import (
	"crypto/subtle"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"vpnstore/internal/config"
)

//go:embed templates/*.html
var templateFS embed.FS

var configPage = template.Must(template.ParseFS(templateFS, "templates/config.html"))

// pageData feeds templates/config.html
type pageData struct {
	Title   string
	Key     string
	Config  config.AppConfig
	Admins  string
	Message string
	Error   string
}

// requireKey guards the config once it exists: callers must present the
// configured server key as X-Config-Key or as the key parameter
func (s *Server) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := s.configs.Current()
		if !s.configs.Ready() || cur == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get("X-Config-Key")
		if key == "" {
			key = r.URL.Query().Get("key")
		}
		if key == "" && r.Method == http.MethodPost && !isJSON(r) {
			key = r.PostFormValue("key")
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(cur.ServerKey)) != 1 {
			writeError(w, http.StatusForbidden, "invalid config key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"configured": s.configs.Ready()}
	if cur := s.configs.Current(); cur != nil {
		resp["config"] = cur.Masked()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	form := !isJSON(r)

	var cfg config.AppConfig
	var err error
	if form {
		cfg, err = configFromForm(r)
	} else {
		err = json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&cfg)
	}
	if err != nil {
		s.saveFailed(w, r, form, cfg, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	keepSecrets(s.configs.Current(), &cfg)
	if err := s.configs.Save(cfg); err != nil {
		s.logger.Warn("Rejected config update", zap.Error(err))
		s.saveFailed(w, r, form, cfg, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Info("Configuration saved", zap.Int("admins", len(cfg.AdminIDs)))

	if form {
		s.renderPage(w, http.StatusOK, pageFor("Configuration", cfg.Masked(), cfg.ServerKey), "Configuration saved.", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) saveFailed(w http.ResponseWriter, r *http.Request, form bool, cfg config.AppConfig, status int, msg string) {
	if form {
		s.renderPage(w, status, pageFor("Configuration", cfg, r.PostFormValue("key")), "", msg)
		return
	}
	writeError(w, status, msg)
}

// handleSetupPage shows the first-run form; once configured it moves to the edit page
func (s *Server) handleSetupPage(w http.ResponseWriter, r *http.Request) {
	if s.configs.Ready() {
		http.Redirect(w, r, "/config/edit", http.StatusSeeOther)
		return
	}
	var cfg config.AppConfig
	if cur := s.configs.Current(); cur != nil {
		cfg = cur.Masked()
	}
	s.renderPage(w, http.StatusOK, pageFor("Bot setup", cfg, ""), "", "")
}

func (s *Server) handleEditPage(w http.ResponseWriter, r *http.Request) {
	var cfg config.AppConfig
	if cur := s.configs.Current(); cur != nil {
		cfg = cur.Masked()
	}
	s.renderPage(w, http.StatusOK, pageFor("Edit configuration", cfg, r.URL.Query().Get("key")), "", "")
}

func pageFor(title string, cfg config.AppConfig, key string) pageData {
	ids := make([]string, len(cfg.AdminIDs))
	for i, id := range cfg.AdminIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return pageData{Title: title, Key: key, Config: cfg, Admins: strings.Join(ids, ", ")}
}

func (s *Server) renderPage(w http.ResponseWriter, status int, data pageData, message, errMsg string) {
	data.Message = message
	data.Error = errMsg
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := configPage.Execute(w, data); err != nil {
		s.logger.Error("Failed to render config page", zap.Error(err))
	}
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// configFromForm reads the config page form
func configFromForm(r *http.Request) (config.AppConfig, error) {
	if err := r.ParseForm(); err != nil {
		return config.AppConfig{}, err
	}

	cfg := config.AppConfig{
		BotToken:     strings.TrimSpace(r.PostFormValue("bot_token")),
		QRISData:     strings.TrimSpace(r.PostFormValue("qris_data")),
		MerchantID:   strings.TrimSpace(r.PostFormValue("merchant_id")),
		ServerKey:    strings.TrimSpace(r.PostFormValue("server_key")),
		StoreName:    strings.TrimSpace(r.PostFormValue("store_name")),
		TrialEnabled: r.PostFormValue("trial_enabled") != "",
	}

	admins, err := parseIDList(r.PostFormValue("admin_id"))
	if err != nil {
		return cfg, fmt.Errorf("admin_id: %w", err)
	}
	cfg.AdminIDs = admins

	if v := strings.TrimSpace(r.PostFormValue("group_id")); v != "" {
		if cfg.GroupID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return cfg, fmt.Errorf("group_id must be a number")
		}
	}
	if v := strings.TrimSpace(r.PostFormValue("min_deposit")); v != "" {
		if cfg.MinDeposit, err = strconv.ParseInt(v, 10, 64); err != nil {
			return cfg, fmt.Errorf("min_deposit must be a number")
		}
	}
	return cfg, nil
}

// parseIDList reads ids separated by commas or spaces
func parseIDList(s string) (config.IDList, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\n' || r == '\t' })
	ids := make(config.IDList, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", f)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// keepSecrets restores secrets the client sent back masked or left empty
func keepSecrets(cur *config.AppConfig, next *config.AppConfig) {
	if cur == nil {
		return
	}
	masked := cur.Masked()
	if next.BotToken == "" || next.BotToken == masked.BotToken {
		next.BotToken = cur.BotToken
	}
	if next.ServerKey == "" || next.ServerKey == masked.ServerKey {
		next.ServerKey = cur.ServerKey
	}
}
