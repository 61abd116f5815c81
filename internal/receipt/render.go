package receipt

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

const timeLayout = "2006-01-02 15:04"

type Line struct {
	Description string
	Qty         int64
	UnitPrice   int64
	Amount      int64
}

// Data is everything printed on a session receipt.
type Data struct {
	VenueName    string
	VenueAddress string
	Currency     string
	Location     *time.Location

	SessionID       string
	TableName       string
	CustomerName    string
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int64
	HourlyRate      int64

	Lines []Line

	GameAmount       int64
	AdditionalAmount int64
	TotalAmount      int64
	CashbackUsed     int64
	PaidAmount       int64
	DebtAmount       int64
	PaymentType      string
}

// Render lays out the receipt and returns the PDF bytes.
func Render(data Data) ([]byte, error) {
	loc := data.Location
	if loc == nil {
		loc = time.UTC
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, data.VenueName, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, "Receipt", props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)
	if data.VenueAddress != "" {
		m.AddRow(8, text.NewCol(12, data.VenueAddress, props.Text{Size: 9}))
	}

	m.AddRow(28,
		col.New(6).Add(
			text.New("Session: "+data.SessionID, props.Text{Top: 0, Size: 9}),
			text.New("Table: "+data.TableName, props.Text{Top: 5, Size: 9}),
			text.New("Customer: "+data.CustomerName, props.Text{Top: 10, Size: 9}),
		),
		col.New(6).Add(
			text.New("Start: "+data.StartTime.In(loc).Format(timeLayout), props.Text{Top: 0, Size: 9, Align: align.Right}),
			text.New("End: "+data.EndTime.In(loc).Format(timeLayout), props.Text{Top: 5, Size: 9, Align: align.Right}),
			text.New(fmt.Sprintf("Duration: %d min", data.DurationMinutes), props.Text{Top: 10, Size: 9, Align: align.Right}),
		),
	)

	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	m.AddRow(8,
		text.NewCol(6, fmt.Sprintf("Table time (%d min)", data.DurationMinutes), props.Text{Size: 9}),
		text.NewCol(2, "1", props.Text{Size: 9, Align: align.Right}),
		text.NewCol(2, FormatAmount(data.HourlyRate, data.Currency)+"/h", props.Text{Size: 9, Align: align.Right}),
		text.NewCol(2, FormatAmount(data.GameAmount, data.Currency), props.Text{Size: 9, Align: align.Right}),
	)
	for _, line := range data.Lines {
		m.AddRow(8,
			text.NewCol(6, line.Description, props.Text{Size: 9}),
			text.NewCol(2, strconv.FormatInt(line.Qty, 10), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, FormatAmount(line.UnitPrice, data.Currency), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, FormatAmount(line.Amount, data.Currency), props.Text{Size: 9, Align: align.Right}),
		)
	}

	totals := []struct {
		label  string
		amount int64
		bold   bool
	}{
		{"Total", data.TotalAmount, true},
		{"Cashback used", data.CashbackUsed, false},
		{"Paid (" + data.PaymentType + ")", data.PaidAmount, false},
		{"Debt", data.DebtAmount, false},
	}
	for _, row := range totals {
		style := fontstyle.Normal
		if row.bold {
			style = fontstyle.Bold
		}
		m.AddRow(8,
			col.New(6),
			text.NewCol(3, row.label, props.Text{Size: 9, Style: style}),
			text.NewCol(3, FormatAmount(row.amount, data.Currency), props.Text{Size: 9, Style: style, Align: align.Right}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

// FormatAmount renders whole currency units with space-grouped thousands.
func FormatAmount(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)

	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(d)
	}

	out := sign + b.String()
	if currency != "" {
		out += " " + currency
	}
	return out
}
