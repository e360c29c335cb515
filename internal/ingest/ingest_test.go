package ingest

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/airaudit/internal/dataset"
	"github.com/soltixdb/airaudit/internal/logging"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	loc, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)
	return NewParser(Options{Location: loc}, logging.NewNop())
}

const utcLog = `UTC Date,UTC Time,Benzene C6H6+,GSU_PUMP_ON monitor [],GSU_VALVE_PR1 monitor [],Toluene
15032024,140200.0,0.4,1,0,1.1
15032024,140000.0,0.2,1,0,1.0
15032024,140100.4,0.3,0,0,1.2
15032024,140300.0,0.5,1,1,
`

func TestParse_UTCColumns(t *testing.T) {
	p := newTestParser(t)

	res, err := p.Parse(File{Name: "20240315_vehicle1.csv", Reader: strings.NewReader(utcLog)})
	require.NoError(t, err)

	assert.Equal(t, "20240315", res.AuditDate)
	assert.Equal(t, []string{"Benzene C6H6+", "GSU_PUMP_ON monitor []", "GSU_VALVE_PR1 monitor []", "Toluene"}, res.Frame.Channels())
	require.Equal(t, 4, res.Frame.Len())

	// sorted, converted from UTC to Denver (MDT, UTC-6)
	first := res.Frame.Times()[0]
	assert.Equal(t, 8, first.Hour())
	assert.Equal(t, 0, first.Minute())
	assert.Equal(t, "America/Denver", first.Location().String())

	benzene, err := res.Frame.Column("Benzene C6H6+")
	require.NoError(t, err)
	assert.Equal(t, 0.2, benzene[0])
	assert.True(t, math.IsNaN(benzene[1]), "pump off")
	assert.Equal(t, 0.4, benzene[2])
	assert.True(t, math.IsNaN(benzene[3]), "valve open")
	assert.Equal(t, 2, res.Cleaned)

	toluene, _ := res.Frame.Column("Toluene")
	assert.Equal(t, 1.2, toluene[1], "other channels are not cleaned")
	assert.True(t, math.IsNaN(toluene[3]))

	// raw rows follow the sorted order and keep the original text
	require.Len(t, res.Raw.Rows, 4)
	assert.Equal(t, "140000.0", res.Raw.Rows[0][1])
	assert.Equal(t, "0.3", res.Raw.Rows[1][2])
}

func TestParse_LocalTimeColumn(t *testing.T) {
	p := newTestParser(t)
	log := "time,Ozone\n2024-03-15 08:00:05,30.1\n2024-03-15 08:00:00,30.0\n\n"

	res, err := p.Parse(File{Name: "ozone.csv", Reader: strings.NewReader(log)})
	require.NoError(t, err)

	assert.Equal(t, "20240315", res.AuditDate, "taken from the first row")
	assert.Equal(t, []string{"Ozone"}, res.Frame.Channels())
	require.Equal(t, 2, res.Frame.Len())
	assert.Equal(t, 0, res.Frame.Times()[0].Second())
	assert.Equal(t, 8, res.Frame.Times()[0].Hour())
}

func TestParse_MergesFiles(t *testing.T) {
	p := newTestParser(t)
	a := "time,Ozone\n2024-03-15 08:01:00,2\n"
	b := "time,Ozone\n2024-03-15 08:00:00,1\n"

	res, err := p.Parse(
		File{Name: "20240315_a.csv", Reader: strings.NewReader(a)},
		File{Name: "20240315_b.csv", Reader: strings.NewReader(b)},
	)
	require.NoError(t, err)
	col, _ := res.Frame.Column("Ozone")
	assert.Equal(t, []float64{1, 2}, col)
}

func TestParse_Errors(t *testing.T) {
	p := newTestParser(t)

	_, err := p.Parse(File{Name: "x.csv", Reader: strings.NewReader("a,b\n1,2\n")})
	assert.ErrorIs(t, err, ErrNoTimeColumn)

	_, err = p.Parse(File{Name: "x.csv", Reader: strings.NewReader("time,a\n")})
	assert.ErrorIs(t, err, ErrNoData)

	_, err = p.Parse(
		File{Name: "a.csv", Reader: strings.NewReader("time,a\n2024-03-15 08:00:00,1\n")},
		File{Name: "b.csv", Reader: strings.NewReader("time,b\n2024-03-15 08:00:00,1\n")},
	)
	assert.ErrorIs(t, err, ErrMixedHeaders)

	_, err = p.Parse(
		File{Name: "20240315_a.csv", Reader: strings.NewReader("time,a\n2024-03-15 08:00:00,1\n")},
		File{Name: "20240316_b.csv", Reader: strings.NewReader("time,a\n2024-03-16 08:00:00,1\n")},
	)
	assert.ErrorIs(t, err, ErrMixedDates)

	_, err = p.Parse(File{Name: "x.csv", Reader: strings.NewReader("time,a\nyesterday,1\n")})
	assert.Error(t, err)
}

func TestParse_Windows1252Header(t *testing.T) {
	p := newTestParser(t)
	// 0xB0 is the degree sign in Windows-1252
	log := "time,Temperature (\xb0C)\n2024-03-15 08:00:00,21.5\n"

	res, err := p.Parse(File{Name: "imet.csv", Reader: strings.NewReader(log)})
	require.NoError(t, err)
	assert.True(t, res.Frame.HasChannel("Temperature (°C)"))
}

func TestParseUTCDateTime_PadsDroppedZeros(t *testing.T) {
	ts, err := parseUTCDateTime("5032024", "80000")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC), ts)
}

func TestParseLocalTime(t *testing.T) {
	loc, _ := time.LoadLocation("America/Denver")

	ts, err := ParseLocalTime("2024-03-15T14:00:00Z", loc)
	require.NoError(t, err)
	assert.Equal(t, 8, ts.Hour())

	ts, err = ParseLocalTime("3/15/2024 8:30:00 AM", loc)
	require.NoError(t, err)
	assert.Equal(t, 30, ts.Minute())

	_, err = ParseLocalTime("", loc)
	assert.Error(t, err)
}

const kestrelExport = `Device Name,WEATHER - 2785093
Device Model,5500
Serial Number,2785093
FORMATTED DATE_TIME,Temperature,Relative Humidity,Barometric Pressure,Compass True Direction,Wind Speed
yyyy-MM-dd hh:mm:ss a,°F,%,inHg,Deg,mph
2024-03-15 08:00:00,20.1,30.2,25.1,180,2.2
2024-03-15 08:01:00,20.3,30.0,25.1,181,
`

func TestParseKestrel(t *testing.T) {
	p := newTestParser(t)

	f, err := p.ParseKestrel(strings.NewReader(kestrelExport))
	require.NoError(t, err)

	assert.Equal(t, []string{"Temperature", "Relative Humidity", "Barometric Pressure", "Compass True Direction", "Wind Speed"}, f.Channels())
	require.Equal(t, 2, f.Len())
	assert.Equal(t, 8, f.Times()[0].Hour())

	temp, _ := f.Column("Temperature")
	assert.Equal(t, []float64{20.1, 20.3}, temp)
	wind, _ := f.Column("Wind Speed")
	assert.True(t, math.IsNaN(wind[1]))
}

func TestParseKestrel_TooShort(t *testing.T) {
	p := newTestParser(t)
	_, err := p.ParseKestrel(strings.NewReader("a\nb\n"))
	assert.ErrorIs(t, err, ErrNoData)
}

func TestParse_FeedsSession(t *testing.T) {
	p := newTestParser(t)
	res, err := p.Parse(File{Name: "20240315_vehicle1.csv", Reader: strings.NewReader(utcLog)})
	require.NoError(t, err)

	s, err := dataset.NewSession("id", "20240315_vehicle1.csv", res.AuditDate, DefaultCompound, res.Frame, res.Raw)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Frame.Len())
}
