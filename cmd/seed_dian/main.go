// seed_dian registra el rango de numeración autorizado por la DIAN para una empresa
// a partir de la respuesta XML de GetNumberingRange.
//
// Uso: go run ./cmd/seed_dian -company <id> [-family INVOICE] [-prefix SETP] [ruta/rangos.xml]
// Por defecto lee NumberingRange.xml en el directorio actual.
package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/postgres"
	"github.com/jhoicas/stockflow-api/pkg/config"
	"github.com/jhoicas/stockflow-api/pkg/logger"
)

func main() {
	companyID := flag.String("company", "", "empresa dueña del rango")
	family := flag.String("family", string(entity.DocumentTypeInvoice), "INVOICE | CREDIT_NOTE | DEBIT_NOTE")
	prefix := flag.String("prefix", "", "prefijo a importar cuando el archivo trae varios")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "seed_dian"})

	if *companyID == "" {
		log.Fatal().Msg("-company es obligatorio")
	}
	docType := entity.DocumentType(strings.ToUpper(*family))
	if !docType.Valid() {
		log.Fatal().Str("family", *family).Msg("familia inválida")
	}

	xmlPath := "NumberingRange.xml"
	if flag.NArg() > 0 {
		xmlPath = flag.Arg(0)
	}
	f, err := os.Open(xmlPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", xmlPath).Msg("abrir XML")
	}
	defer f.Close()

	ranges, err := parseRanges(f)
	if err != nil {
		log.Fatal().Err(err).Msg("leer rangos")
	}
	nr, err := pick(ranges, *prefix)
	if err != nil {
		log.Fatal().Err(err).Msg("seleccionar rango")
	}
	res, err := nr.toResolution(*companyID, docType)
	if err != nil {
		log.Fatal().Err(err).Msg("rango inválido")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.NewBillingResolutionRepository(pool).Upsert(ctx, res); err != nil {
		log.Fatal().Err(err).Msg("guardar rango")
	}
	log.Info().
		Str("company_id", res.CompanyID).
		Str("family", string(res.DocumentType)).
		Str("prefix", res.Prefix).
		Int64("next_number", res.NextNumber).
		Int64("range_to", res.RangeTo).
		Msg("rango de numeración registrado")

	if nr.TechnicalKey != "" {
		log.Info().Msg("la respuesta trae clave técnica; registrarla con PUT /api/settings/dian")
	}
}
