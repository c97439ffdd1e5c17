package main

import (
	"fmt"
	"net/http"

	"github.com/lootbox-lab/backend/internal/middleware"
	"github.com/lootbox-lab/backend/pkg/router"
	"github.com/lootbox-lab/backend/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startApi(*cli.Context) error {
	s.loadConfig()
	s.loadLogger()
	s.loadDatabase()
	s.loadEndpoints()
	s.loadRepos()
	s.loadDomains()
	s.loadRouter()

	cfg := xcontext.Configs(s.ctx)
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ApiServer.Port),
		Handler: s.router.Handler(),
	}

	xcontext.Logger(s.ctx).Infof("Starting server on port %s", cfg.ApiServer.Port)
	if err := s.server.ListenAndServe(); err != nil {
		return err
	}

	return nil
}

func (s *srv) loadRouter() {
	s.router = router.New(s.ctx)
	s.router.Use(middleware.ServiceToken())

	router.POST(s.router, "/buy", s.purchaseDomain.Buy)
	router.GET(s.router, "/getStock", s.prizeDomain.GetStock)
	router.GET(s.router, "/getPurchaseHistory", s.purchaseDomain.GetHistory)
	router.GET(s.router, "/getStats", s.statsDomain.Get)

	router.GET(s.router, "/getConfig", s.configDomain.Get)
	router.POST(s.router, "/updateConfig", s.configDomain.Set)
	router.POST(s.router, "/addPrize", s.prizeDomain.Add)
	router.POST(s.router, "/removePrize", s.prizeDomain.Remove)
	router.POST(s.router, "/setLockout", s.configDomain.SetLockout)
	router.POST(s.router, "/reset", s.resetDomain.Reset)
}
