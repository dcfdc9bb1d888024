package handlers

import (
	"database/sql"
	"log/slog"

	"github.com/boostlyhq/boostly-golang/internal/ai"
	"github.com/boostlyhq/boostly-golang/internal/analytics"
	"github.com/boostlyhq/boostly-golang/internal/auth"
	"github.com/boostlyhq/boostly-golang/internal/config"
	"github.com/boostlyhq/boostly-golang/internal/imagegen"
	"github.com/boostlyhq/boostly-golang/internal/instagram"
	"github.com/boostlyhq/boostly-golang/internal/license"
	"github.com/boostlyhq/boostly-golang/internal/notify"
	"github.com/boostlyhq/boostly-golang/internal/shortlink"
	"github.com/boostlyhq/boostly-golang/internal/storage"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	DB         *sql.DB
	Cfg        *config.Config
	Log        *slog.Logger
	Tokens     *auth.TokenManager
	Engine     *license.Engine
	Dispatcher *notify.Dispatcher
	Analytics  *analytics.Service
	AIService  *ai.AIService
	ImageGen   *imagegen.Client
	Uploader   *storage.Uploader
	Instagram  *instagram.Processor
	ShortLinks *shortlink.Service
}
