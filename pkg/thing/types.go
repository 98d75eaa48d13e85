package thing

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type ids of the built-in payloads, as assigned by the platform.
var (
	WeightTypeID        = uuid.MustParse("3d34d87e-7fc1-4153-800f-f56592cb0d17")
	BloodPressureTypeID = uuid.MustParse("ca3c57f4-f4c1-4e15-be67-0a3caf5414ed")
	BasicTypeID         = uuid.MustParse("3b3e6b16-eb69-483c-8d7e-dfe116ae6092")
)

// structuredWhen is the platform's split date/time representation used
// inside measurement payloads.
type structuredWhen struct {
	Date struct {
		Y int `xml:"y"`
		M int `xml:"m"`
		D int `xml:"d"`
	} `xml:"date"`
	Time *struct {
		H int `xml:"h"`
		M int `xml:"m"`
		S int `xml:"s"`
	} `xml:"time"`
}

func (w *structuredWhen) toTime() time.Time {
	if w.Date.Y == 0 {
		return time.Time{}
	}
	h, m, s := 0, 0, 0
	if w.Time != nil {
		h, m, s = w.Time.H, w.Time.M, w.Time.S
	}
	return time.Date(w.Date.Y, time.Month(w.Date.M), w.Date.D, h, m, s, 0, time.UTC)
}

func writeStructuredWhen(enc *xml.Encoder, t time.Time) error {
	when := xml.StartElement{Name: xml.Name{Local: "when"}}
	if err := enc.EncodeToken(when); err != nil {
		return err
	}
	date := xml.StartElement{Name: xml.Name{Local: "date"}}
	if err := enc.EncodeToken(date); err != nil {
		return err
	}
	for _, f := range []struct {
		local string
		value int
	}{{"y", t.Year()}, {"m", int(t.Month())}, {"d", t.Day()}} {
		if err := enc.EncodeElement(f.value, xml.StartElement{Name: xml.Name{Local: f.local}}); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(date.End()); err != nil {
		return err
	}
	tm := xml.StartElement{Name: xml.Name{Local: "time"}}
	if err := enc.EncodeToken(tm); err != nil {
		return err
	}
	for _, f := range []struct {
		local string
		value int
	}{{"h", t.Hour()}, {"m", t.Minute()}, {"s", t.Second()}} {
		if err := enc.EncodeElement(f.value, xml.StartElement{Name: xml.Name{Local: f.local}}); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(tm.End()); err != nil {
		return err
	}
	return enc.EncodeToken(when.End())
}

// =========== Weight ===========

// Weight is a body weight measurement in kilograms.
type Weight struct {
	When      time.Time
	Kilograms float64
}

type weightXML struct {
	XMLName xml.Name       `xml:"weight"`
	When    structuredWhen `xml:"when"`
	Value   struct {
		Kg float64 `xml:"kg"`
	} `xml:"value"`
}

func (w *Weight) TypeID() uuid.UUID { return WeightTypeID }

func (w *Weight) ParseDataXML(data []byte) error {
	var x weightXML
	if err := xml.Unmarshal(data, &x); err != nil {
		return fmt.Errorf("thing: parse weight payload: %w", err)
	}
	w.When = x.When.toTime()
	w.Kilograms = x.Value.Kg
	return nil
}

func (w *Weight) WriteDataXML(enc *xml.Encoder) error {
	root := xml.StartElement{Name: xml.Name{Local: "weight"}}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}
	if err := writeStructuredWhen(enc, w.When); err != nil {
		return err
	}
	value := xml.StartElement{Name: xml.Name{Local: "value"}}
	if err := enc.EncodeToken(value); err != nil {
		return err
	}
	if err := enc.EncodeElement(w.Kilograms, xml.StartElement{Name: xml.Name{Local: "kg"}}); err != nil {
		return err
	}
	if err := enc.EncodeToken(value.End()); err != nil {
		return err
	}
	return enc.EncodeToken(root.End())
}

// =========== Blood Pressure ===========

// BloodPressure is a blood pressure measurement in mmHg with an optional
// pulse reading.
type BloodPressure struct {
	When      time.Time
	Systolic  int
	Diastolic int
	Pulse     *int
}

type bloodPressureXML struct {
	XMLName   xml.Name       `xml:"blood-pressure"`
	When      structuredWhen `xml:"when"`
	Systolic  int            `xml:"systolic"`
	Diastolic int            `xml:"diastolic"`
	Pulse     *int           `xml:"pulse"`
}

func (b *BloodPressure) TypeID() uuid.UUID { return BloodPressureTypeID }

func (b *BloodPressure) ParseDataXML(data []byte) error {
	var x bloodPressureXML
	if err := xml.Unmarshal(data, &x); err != nil {
		return fmt.Errorf("thing: parse blood-pressure payload: %w", err)
	}
	b.When = x.When.toTime()
	b.Systolic = x.Systolic
	b.Diastolic = x.Diastolic
	b.Pulse = x.Pulse
	return nil
}

func (b *BloodPressure) WriteDataXML(enc *xml.Encoder) error {
	root := xml.StartElement{Name: xml.Name{Local: "blood-pressure"}}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}
	if err := writeStructuredWhen(enc, b.When); err != nil {
		return err
	}
	if err := enc.EncodeElement(b.Systolic, xml.StartElement{Name: xml.Name{Local: "systolic"}}); err != nil {
		return err
	}
	if err := enc.EncodeElement(b.Diastolic, xml.StartElement{Name: xml.Name{Local: "diastolic"}}); err != nil {
		return err
	}
	if b.Pulse != nil {
		if err := enc.EncodeElement(*b.Pulse, xml.StartElement{Name: xml.Name{Local: "pulse"}}); err != nil {
			return err
		}
	}
	return enc.EncodeToken(root.End())
}

// =========== Basic Demographic Information ===========

// Basic is the basic demographic information payload (v2 subset).
type Basic struct {
	Gender    string
	BirthYear int
	City      string
	Country   string
}

type basicXML struct {
	XMLName   xml.Name `xml:"basic"`
	Gender    string   `xml:"gender"`
	BirthYear int      `xml:"birthyear"`
	City      string   `xml:"city"`
	Country   struct {
		Text string `xml:"text"`
	} `xml:"country"`
}

func (b *Basic) TypeID() uuid.UUID { return BasicTypeID }

func (b *Basic) ParseDataXML(data []byte) error {
	var x basicXML
	if err := xml.Unmarshal(data, &x); err != nil {
		return fmt.Errorf("thing: parse basic payload: %w", err)
	}
	b.Gender = x.Gender
	b.BirthYear = x.BirthYear
	b.City = x.City
	b.Country = x.Country.Text
	return nil
}

func (b *Basic) WriteDataXML(enc *xml.Encoder) error {
	root := xml.StartElement{Name: xml.Name{Local: "basic"}}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}
	if b.Gender != "" {
		if err := enc.EncodeElement(b.Gender, xml.StartElement{Name: xml.Name{Local: "gender"}}); err != nil {
			return err
		}
	}
	if b.BirthYear != 0 {
		if err := enc.EncodeElement(b.BirthYear, xml.StartElement{Name: xml.Name{Local: "birthyear"}}); err != nil {
			return err
		}
	}
	if b.Country != "" {
		country := xml.StartElement{Name: xml.Name{Local: "country"}}
		if err := enc.EncodeToken(country); err != nil {
			return err
		}
		if err := enc.EncodeElement(b.Country, xml.StartElement{Name: xml.Name{Local: "text"}}); err != nil {
			return err
		}
		if err := enc.EncodeToken(country.End()); err != nil {
			return err
		}
	}
	if b.City != "" {
		if err := enc.EncodeElement(b.City, xml.StartElement{Name: xml.Name{Local: "city"}}); err != nil {
			return err
		}
	}
	return enc.EncodeToken(root.End())
}
