package main

import (
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/snowflake"
	landedcostdomain "github.com/railzwaylabs/landedcost/internal/landedcost/domain"
	landedcostservice "github.com/railzwaylabs/landedcost/internal/landedcost/service"
	"github.com/railzwaylabs/landedcost/internal/ratehunter"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

type calcFlags struct {
	hs           string
	cluster      string
	customsValue string
	invoiceValue string
	exchangeRate string
	origin       string
	destination  string
	importerType string
	incoterm     string
	freight      string
	insurance    string
	other        string
	quantity     int64
	weightKg     string
	sellingPrice string
	targetMargin string
	version      string
	userID       string
	hunt         bool
}

func newCalcCmd() *cobra.Command {
	var f calcFlags
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Calculate the landed cost of one shipment and print it as JSON",
		Example: `  landedcost calc --hs 610910 --value 10000 --origin DE
  landedcost calc --cluster solar-panels --invoice 1200 --rate 18.4 --origin CN --incoterm CIF --hunt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := f.input()
			if err != nil {
				return err
			}

			var (
				calc   *landedcostservice.Service
				hunter *ratehunter.Service
			)
			app := fx.New(
				infraModules(),
				engineModules(),
				fx.Populate(&calc, &hunter),
			)
			if err := app.Start(cmd.Context()); err != nil {
				return err
			}
			defer func() { _ = app.Stop(cmd.Context()) }()

			out, err := calc.Calculate(cmd.Context(), in, f.userID)
			if err != nil {
				return err
			}
			var result any = out
			if f.hunt {
				hunt, err := hunter.FindBetterOrigins(cmd.Context(), in, out)
				if err != nil {
					return err
				}
				result = map[string]any{"calculation": out, "rate_hunter": hunt}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.hs, "hs", "", "HS code (6 digits, dots allowed)")
	fl.StringVar(&f.cluster, "cluster", "", "product cluster slug, used when --hs is empty")
	fl.StringVar(&f.customsValue, "value", "", "customs value in ZAR")
	fl.StringVar(&f.invoiceValue, "invoice", "", "invoice value in the supplier currency")
	fl.StringVar(&f.exchangeRate, "rate", "", "exchange rate to ZAR")
	fl.StringVar(&f.origin, "origin", "", "origin country ISO2")
	fl.StringVar(&f.destination, "destination", "", "destination country ISO2")
	fl.StringVar(&f.importerType, "importer", "", "VAT_REGISTERED, NON_VENDOR or PRIVATE")
	fl.StringVar(&f.incoterm, "incoterm", "", "FOB, CIF or EXW")
	fl.StringVar(&f.freight, "freight", "", "freight cost in ZAR")
	fl.StringVar(&f.insurance, "insurance", "", "insurance cost in ZAR")
	fl.StringVar(&f.other, "other", "", "other charges in ZAR")
	fl.Int64Var(&f.quantity, "quantity", 1, "units in the shipment")
	fl.StringVar(&f.weightKg, "weight", "", "net weight in kg")
	fl.StringVar(&f.sellingPrice, "price", "", "target selling price per unit")
	fl.StringVar(&f.targetMargin, "margin", "", "target margin percent")
	fl.StringVar(&f.version, "tariff-version", "", "pin a tariff version ID")
	fl.StringVar(&f.userID, "user", "", "record the run under this user")
	fl.BoolVar(&f.hunt, "hunt", false, "also search for cheaper origins")
	return cmd
}

func (f calcFlags) input() (landedcostdomain.CalcInput, error) {
	in := landedcostdomain.CalcInput{
		HSCode:             f.hs,
		ClusterSlug:        f.cluster,
		OriginCountry:      f.origin,
		DestinationCountry: f.destination,
		ImporterType:       landedcostdomain.ImporterType(f.importerType),
		Incoterm:           landedcostdomain.Incoterm(f.incoterm),
		Quantity:           f.quantity,
	}

	var err error
	if in.CustomsValue, err = optionalDecimal("value", f.customsValue); err != nil {
		return in, err
	}
	if in.NetWeightKg, err = optionalDecimal("weight", f.weightKg); err != nil {
		return in, err
	}
	if in.TargetSellingPrice, err = optionalDecimal("price", f.sellingPrice); err != nil {
		return in, err
	}
	if in.TargetMarginPercent, err = optionalDecimal("margin", f.targetMargin); err != nil {
		return in, err
	}

	for _, field := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"invoice", f.invoiceValue, &in.InvoiceValue},
		{"rate", f.exchangeRate, &in.ExchangeRate},
		{"freight", f.freight, &in.FreightCost},
		{"insurance", f.insurance, &in.InsuranceCost},
		{"other", f.other, &in.OtherCharges},
	} {
		v, err := optionalDecimal(field.name, field.raw)
		if err != nil {
			return in, err
		}
		if v != nil {
			*field.dst = *v
		}
	}

	if f.version != "" {
		id, err := snowflake.ParseString(f.version)
		if err != nil {
			return in, fmt.Errorf("--tariff-version: %w", err)
		}
		in.TariffVersionID = &id
	}
	return in, nil
}

func optionalDecimal(flag, raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", flag, err)
	}
	return &v, nil
}
