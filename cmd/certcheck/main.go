// certcheck verifica el certificado de firma DIAN de una empresa: que cargue con su contraseña
// y que esté vigente.
//
// Uso:
//
//	go run ./cmd/certcheck -company <id>
//	go run ./cmd/certcheck -path cert.p12 -password secreto
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	infradian "github.com/jhoicas/stockflow-api/internal/infrastructure/dian"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/postgres"
	"github.com/jhoicas/stockflow-api/pkg/config"
	"github.com/jhoicas/stockflow-api/pkg/logger"
)

// warnDays días de vigencia por debajo de los cuales se advierte.
const warnDays = 30

func main() {
	companyID := flag.String("company", "", "leer la configuración DIAN de la empresa")
	path := flag.String("path", "", "ruta del .p12/.pfx o del certificado PEM")
	keyPath := flag.String("key", "", "llave PEM (si no va en el mismo archivo)")
	password := flag.String("password", "", "contraseña del .p12")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "certcheck"})

	dianCfg := &entity.DianConfig{CertificatePath: *path, CertificateKeyPath: *keyPath, CertificatePassword: *password}
	if *companyID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		dianCfg, err = postgres.NewDianConfigRepository(pool).Get(ctx, *companyID)
		if err != nil {
			log.Fatal().Err(err).Msg("leer configuración DIAN")
		}
		if dianCfg == nil {
			log.Fatal().Str("company_id", *companyID).Msg("la empresa no tiene configuración DIAN")
		}
	}

	info, err := infradian.CheckCertificate(dianCfg, time.Now())
	if info != nil {
		log.Info().
			Str("path", dianCfg.CertificatePath).
			Str("subject", info.Subject).
			Str("issuer", info.Issuer).
			Str("serial", info.Serial).
			Time("not_after", info.NotAfter).
			Int("days_left", info.DaysLeft).
			Msg("certificado leído")
	}
	if err != nil {
		log.Error().Err(err).Msg("certificado inválido")
		os.Exit(1)
	}
	if info.DaysLeft < warnDays {
		log.Warn().Int("days_left", info.DaysLeft).Msg("el certificado vence pronto; renovarlo antes de que la DIAN rechace las firmas")
	}
}
