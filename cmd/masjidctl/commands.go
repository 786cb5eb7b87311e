package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"masjid-collection/internal/accounts"
	"masjid-collection/internal/domain"
	"masjid-collection/internal/payments"
	"masjid-collection/internal/storage"

	"github.com/google/subcommands"
	"github.com/google/uuid"
)

// opener connects to the configured backend for one command run.
type opener func(ctx context.Context) (storage.Store, error)

func commands(open opener, out io.Writer) []subcommands.Command {
	return []subcommands.Command{
		&createMosqueCmd{open: open, out: out},
		&createAdminCmd{open: open, out: out},
		&exportCmd{open: open, out: out},
		&reportCmd{open: open, out: out},
	}
}

// withStore opens the store, runs fn and maps its error to an exit status.
func withStore(ctx context.Context, open opener, fn func(storage.Store) error) subcommands.ExitStatus {
	st, err := open(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening storage: %v\n", err)
		return subcommands.ExitFailure
	}
	defer st.Close()
	if err := fn(st); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// --- createMosqueCmd ---

type createMosqueCmd struct {
	open opener
	out  io.Writer

	name, city, state, upi string
	minimum                float64
}

func (*createMosqueCmd) Name() string     { return "create-mosque" }
func (*createMosqueCmd) Synopsis() string { return "registers a mosque and prints its id" }
func (*createMosqueCmd) Usage() string {
	return `create-mosque -name <name> -city <city> -state <state> -upi <vpa> [-minimum <amount>]
`
}
func (c *createMosqueCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Mosque name.")
	f.StringVar(&c.city, "city", "", "City the mosque belongs to.")
	f.StringVar(&c.state, "state", "", "State the mosque belongs to.")
	f.StringVar(&c.upi, "upi", "", "UPI id (VPA) that receives contributions.")
	f.Float64Var(&c.minimum, "minimum", 0, "Minimum amount of a single submission.")
}

func (c *createMosqueCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if strings.TrimSpace(c.name) == "" || strings.TrimSpace(c.city) == "" {
		fmt.Fprintln(os.Stderr, "Error: -name and -city are required.")
		return subcommands.ExitUsageError
	}
	if c.minimum < 0 {
		fmt.Fprintln(os.Stderr, "Error: -minimum cannot be negative.")
		return subcommands.ExitUsageError
	}
	return withStore(ctx, c.open, func(st storage.Store) error {
		m, err := st.CreateMosque(ctx, domain.Mosque{
			Name:          strings.TrimSpace(c.name),
			City:          strings.TrimSpace(c.city),
			State:         strings.TrimSpace(c.state),
			UPIID:         strings.TrimSpace(c.upi),
			MinimumAmount: c.minimum,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, m.ID)
		return nil
	})
}

// --- createAdminCmd ---

type createAdminCmd struct {
	open opener
	out  io.Writer

	email, name, password, role, mosque, city string
}

func (*createAdminCmd) Name() string     { return "create-admin" }
func (*createAdminCmd) Synopsis() string { return "creates a mosque, city or super admin account" }
func (*createAdminCmd) Usage() string {
	return `create-admin -email <email> -password <password> -role <mosque_admin|city_admin|super_admin> [-mosque <id>] [-city <city>]

A mosque admin needs -mosque, a city admin needs -city.
`
}
func (c *createAdminCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "Login email.")
	f.StringVar(&c.name, "name", "", "Full name.")
	f.StringVar(&c.password, "password", "", "Initial password, at least 8 characters.")
	f.StringVar(&c.role, "role", string(domain.RoleMosqueAdmin), "Role of the new account.")
	f.StringVar(&c.mosque, "mosque", "", "Mosque id for a mosque admin.")
	f.StringVar(&c.city, "city", "", "City for a city admin.")
}

func (c *createAdminCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.email == "" || c.password == "" {
		fmt.Fprintln(os.Stderr, "Error: -email and -password are required.")
		return subcommands.ExitUsageError
	}
	role, err := domain.ParseRole(c.role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	in := accounts.AdminInput{Email: c.email, FullName: c.name, Password: c.password, Role: role, City: c.city}
	if c.mosque != "" {
		id, err := uuid.Parse(c.mosque)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid -mosque %q\n", c.mosque)
			return subcommands.ExitUsageError
		}
		in.MosqueID = &id
	}
	return withStore(ctx, c.open, func(st storage.Store) error {
		u, err := accounts.CreateAdmin(ctx, st, in)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "created %s %s (%s)\n", u.Role, u.Email, u.ID)
		return nil
	})
}

// --- exportCmd ---

type exportCmd struct {
	open opener
	out  io.Writer

	household, status, sort, file string
	year                          int
	desc                          bool
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "exports the payment history of a household as CSV" }
func (*exportCmd) Usage() string {
	return `export -household <id> [-year <year>] [-status all|paid|pending_verification|rejected] [-sort date|month|amount] [-desc] [-o <file>]

Without -o the CSV is written to stdout.
`
}
func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.household, "household", "", "Household id.")
	f.IntVar(&c.year, "year", time.Now().Year(), "Year to export.")
	f.StringVar(&c.status, "status", "all", "Status filter.")
	f.StringVar(&c.sort, "sort", "date", "Sort key.")
	f.BoolVar(&c.desc, "desc", false, "Reverse the natural order.")
	f.StringVar(&c.file, "o", "", "Output file; payment-history-<year>.csv if set to \"auto\".")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := uuid.Parse(c.household)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: -household must be a household id.")
		return subcommands.ExitUsageError
	}
	filter, err := domain.ParseStatusFilter(c.status)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	sortKey, err := payments.ParseSortKey(c.sort)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	return withStore(ctx, c.open, func(st storage.Store) error {
		if _, err := st.GetHousehold(ctx, id); err != nil {
			return err
		}
		rows, err := st.ListPayments(ctx, id, c.year)
		if err != nil {
			return err
		}
		rows = payments.History(rows, payments.HistoryQuery{Status: filter, Sort: sortKey, Desc: c.desc})

		w := c.out
		if c.file != "" {
			name := c.file
			if name == "auto" {
				name = payments.CSVFilename(c.year)
			}
			f, err := os.Create(name)
			if err != nil {
				return fmt.Errorf("create %s: %w", name, err)
			}
			defer f.Close()
			w = f
		}
		return payments.WriteCSV(w, rows)
	})
}

// --- reportCmd ---

type reportCmd struct {
	open opener
	out  io.Writer

	household, from, to string
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "prints the month by month report of a household" }
func (*reportCmd) Usage() string {
	return `report -household <id> -from YYYY-MM -to YYYY-MM
`
}
func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	now := time.Now()
	f.StringVar(&c.household, "household", "", "Household id.")
	f.StringVar(&c.from, "from", fmt.Sprintf("%d-01", now.Year()), "First month, inclusive.")
	f.StringVar(&c.to, "to", fmt.Sprintf("%d-12", now.Year()), "Last month, inclusive.")
}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, err := uuid.Parse(c.household)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: -household must be a household id.")
		return subcommands.ExitUsageError
	}
	from, err1 := domain.ParseYearMonth(c.from)
	to, err2 := domain.ParseYearMonth(c.to)
	if err1 != nil || err2 != nil {
		fmt.Fprintln(os.Stderr, "Error: -from and -to must look like 2025-01.")
		return subcommands.ExitUsageError
	}
	if err := payments.CheckReportWindow(from, to); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	return withStore(ctx, c.open, func(st storage.Store) error {
		h, err := st.GetHousehold(ctx, id)
		if err != nil {
			return err
		}
		rows, err := st.ListPaymentsBetween(ctx, id, from, to)
		if err != nil {
			return err
		}
		writeReport(c.out, payments.BuildReport(*h, rows, from, to))
		return nil
	})
}

func writeReport(out io.Writer, r payments.HouseholdReport) {
	fmt.Fprintf(out, "House %s (%s), %s to %s\n\n", r.Household.HouseNumber, r.Household.HeadOfHouse, r.From, r.To)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MONTH\tSTATUS\tAMOUNT")
	for _, ms := range r.Months {
		amount := "-"
		if ms.Payment != nil {
			amount = payments.FormatINR(ms.Payment.Amount)
		}
		fmt.Fprintf(tw, "%s %d\t%s\t%s\n", ms.Name, ms.Year, ms.Status, amount)
	}
	tw.Flush()
	fmt.Fprintf(out, "\npaid %d, pending %d, rejected %d, unpaid %d\n", r.Paid, r.Pending, r.Rejected, r.Unpaid)
	fmt.Fprintf(out, "collected %s of %s expected\n", payments.FormatINR(r.PaidAmount), payments.FormatINR(r.ExpectedTotal))
}
