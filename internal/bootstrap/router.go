package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/kivabase/kivabase-backend/config"
	"github.com/kivabase/kivabase-backend/internal/accessgate"
	gatehttp "github.com/kivabase/kivabase-backend/internal/accessgate/http"
	httpapi "github.com/kivabase/kivabase-backend/internal/api/http"
	"github.com/kivabase/kivabase-backend/internal/api/http/middleware"
	userhttp "github.com/kivabase/kivabase-backend/internal/authusers/http"
	userrepo "github.com/kivabase/kivabase-backend/internal/authusers/repository"
	usersvc "github.com/kivabase/kivabase-backend/internal/authusers/service"
	buckethttp "github.com/kivabase/kivabase-backend/internal/buckets/http"
	bucketrepo "github.com/kivabase/kivabase-backend/internal/buckets/repository"
	bucketsvc "github.com/kivabase/kivabase-backend/internal/buckets/service"
	"github.com/kivabase/kivabase-backend/internal/keyring"
	"github.com/kivabase/kivabase-backend/internal/realtime"
	"github.com/kivabase/kivabase-backend/internal/storage"
	tablehttp "github.com/kivabase/kivabase-backend/internal/tables/http"
	tablerepo "github.com/kivabase/kivabase-backend/internal/tables/repository"
	tablesvc "github.com/kivabase/kivabase-backend/internal/tables/service"
	tenanthttp "github.com/kivabase/kivabase-backend/internal/tenants/http"
	tenantrepo "github.com/kivabase/kivabase-backend/internal/tenants/repository"
	tenantsvc "github.com/kivabase/kivabase-backend/internal/tenants/service"
)

type RouterDeps struct {
	ServiceName string
	Config      *config.Config
	Store       storage.Store
	Registry    *keyring.Registry
	Hub         *realtime.Hub
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.RequestID())
	r.Use(cors.New(corsConfig()))

	cfg := dep.Config

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, cfg.App.Version, dep.Store)
	healthHandler.RegisterRoutes(r)

	tenantSvc := tenantsvc.New(tenantrepo.NewRepo(dep.Store), cfg.Server.PublicURL)
	engine := tablesvc.NewEngine(tablerepo.NewRepo(dep.Store), tenantSvc, dep.Hub)
	userSvc := usersvc.New(userrepo.NewRepo(dep.Store), cfg.Auth.JWTSigningKey, cfg.Auth.JWTExpiration)
	bucketSvc := bucketsvc.New(bucketrepo.NewRepo(dep.Store))
	tenantSvc.RegisterPurgers(engine, userSvc, bucketSvc)

	api := r.Group("/api")

	gatehttp.New(adminAccounts(cfg.Auth.Accounts), dep.Registry).Register(api.Group("/auth"))

	admin := api.Group("/admin")
	admin.Use(accessgate.RequireAdmin(dep.Registry))
	{
		tenanthttp.New(tenantSvc).Register(admin.Group("/projects"))
		tablehttp.NewAdminHandler(engine).Register(admin.Group("/projects/:projectId/tables"))
		userhttp.NewAdminHandler(userSvc).Register(admin.Group("/projects/:projectId/auth/users"))
		buckethttp.NewHandler(bucketSvc).Register(admin.Group("/projects/:projectId/storage"))
	}

	client := api.Group("/projects/:projectId")
	client.Use(middleware.RateLimit(cfg.RateLimit.ClientRPS, cfg.RateLimit.ClientBurst))
	client.Use(accessgate.RequireProjectKey(dep.Registry, tenantSvc))
	{
		tablehttp.NewClientHandler(engine).Register(client)
		userhttp.NewClientHandler(userSvc).Register(client)
	}

	rt := r.Group("/realtime/projects/:projectId")
	rt.Use(accessgate.RequireProjectKey(dep.Registry, tenantSvc))
	realtime.NewWSHandler(dep.Hub).Register(rt)

	return r
}

// adminAccounts indexes the configured allow-list by password, the
// only credential administrators present.
func adminAccounts(accounts []config.AdminAccount) map[string]keyring.Account {
	out := make(map[string]keyring.Account, len(accounts))
	for _, a := range accounts {
		out[a.Password] = keyring.Account{ID: a.ID, Name: a.Name}
	}
	return out
}

func corsConfig() cors.Config {
	c := cors.DefaultConfig()
	c.AllowAllOrigins = true
	c.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Admin-Token", "apikey"}
	c.MaxAge = 12 * time.Hour
	return c
}
