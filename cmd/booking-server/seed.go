package main

import (
	"context"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/spf13/cobra"

	"github.com/ehr/booking/internal/domain/catalog"
)

// catalogFile is the TOML layout read by `seed --catalog`:
//
//	[[building]]
//	name = "Ospedale Maggiore"
//	city = "Milano"
//	  [[building.ward]]
//	  sector = "A"
//	  specialty = "Cardiology"
//	  rooms = [101, 102]
type catalogFile struct {
	Buildings []struct {
		Name       string `toml:"name"`
		Address    string `toml:"address"`
		City       string `toml:"city"`
		PostalCode string `toml:"postal_code"`
		Province   string `toml:"province"`
		Region     string `toml:"region"`
		Phone      string `toml:"phone"`
		Wards      []struct {
			Sector    string `toml:"sector"`
			Specialty string `toml:"specialty"`
			Rooms     []int  `toml:"rooms"`
		} `toml:"ward"`
	} `toml:"building"`
}

func loadCatalog(path string) ([]catalog.BuildingImport, error) {
	var f catalogFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("read catalog %s: unknown key %q", path, undecoded[0].String())
	}

	out := make([]catalog.BuildingImport, 0, len(f.Buildings))
	for _, b := range f.Buildings {
		entry := catalog.BuildingImport{Building: catalog.Building{
			Name:       b.Name,
			Address:    b.Address,
			City:       b.City,
			PostalCode: b.PostalCode,
			Province:   b.Province,
			Region:     b.Region,
			Phone:      b.Phone,
		}}
		for _, w := range b.Wards {
			entry.Wards = append(entry.Wards, catalog.WardImport{
				Sector:    w.Sector,
				Specialty: w.Specialty,
				Rooms:     w.Rooms,
			})
		}
		out = append(out, entry)
	}
	return out, nil
}

// specialties collects the distinct ward specialties, in file order, so fake
// doctors can always be placed in some ward.
func specialties(entries []catalog.BuildingImport) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		for _, w := range e.Wards {
			if !seen[w.Specialty] {
				seen[w.Specialty] = true
				out = append(out, w.Specialty)
			}
		}
	}
	return out
}

func fakeDoctors(faker *gofakeit.Faker, n int, specs []string) []*catalog.Doctor {
	out := make([]*catalog.Doctor, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &catalog.Doctor{
			FirstName: faker.FirstName(),
			LastName:  faker.LastName(),
			Specialty: specs[faker.Number(0, len(specs)-1)],
		})
	}
	return out
}

func fakePatients(faker *gofakeit.Faker, n int) []*catalog.Patient {
	out := make([]*catalog.Patient, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &catalog.Patient{
			FirstName: faker.FirstName(),
			LastName:  faker.LastName(),
			Email:     faker.Email(),
		})
	}
	return out
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the hospital catalog and create fake doctors and patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("catalog")
			doctors, _ := cmd.Flags().GetInt("doctors")
			patients, _ := cmd.Flags().GetInt("patients")
			seed, _ := cmd.Flags().GetUint64("seed")

			entries, err := loadCatalog(path)
			if err != nil {
				return err
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.catalog.Import(ctx, entries)
			if err != nil {
				return err
			}
			logger.Info().Int("buildings", res.Buildings).Int("wards", res.Wards).
				Int("ambulatories", res.Ambulatories).Msg("catalog imported")

			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}
			if err := seedPeople(ctx, a.catalog, gofakeit.New(seed), doctors, patients, specialties(entries)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d building(s), %d ward(s), %d room(s), %d doctor(s), %d patient(s).\n",
				res.Buildings, res.Wards, res.Ambulatories, doctors, patients)
			return nil
		},
	}
	cmd.Flags().String("catalog", "", "Path to the hospital catalog TOML file")
	cmd.MarkFlagRequired("catalog")
	cmd.Flags().Int("doctors", 20, "Number of fake doctors to create")
	cmd.Flags().Int("patients", 200, "Number of fake patients to create")
	cmd.Flags().Uint64("seed", 0, "Random seed for fake data (0: time based)")
	return cmd
}

type personCreator interface {
	CreateDoctor(ctx context.Context, d *catalog.Doctor) error
	CreatePatient(ctx context.Context, p *catalog.Patient) error
}

func seedPeople(ctx context.Context, svc personCreator, faker *gofakeit.Faker, doctors, patients int, specs []string) error {
	if doctors > 0 && len(specs) == 0 {
		return fmt.Errorf("catalog has no wards, cannot assign doctor specialties")
	}
	for _, d := range fakeDoctors(faker, doctors, specs) {
		if err := svc.CreateDoctor(ctx, d); err != nil {
			return fmt.Errorf("create doctor: %w", err)
		}
	}
	for _, p := range fakePatients(faker, patients) {
		if err := svc.CreatePatient(ctx, p); err != nil {
			return fmt.Errorf("create patient: %w", err)
		}
	}
	return nil
}
