package brand

import "regexp"

// Suggested vehicle types. The catalog distinguishes only these three
// top-level classes for underwriting.
const (
	TypeAuto       = "auto"
	TypeTruck      = "camioneta"
	TypeMotorcycle = "motocicleta"
)

var (
	truckTermsRe = regexp.MustCompile(`\b(camion|camioneta|pickup|pick-up|tracto|tractocamion|chasis|redilas|volteo|estacas|remolque|caja seca|panel|van de carga)\b`)
	motoTermsRe  = regexp.MustCompile(`\b(moto|motocicleta|motoneta|scooter|cuatrimoto|atv|trimoto)\b`)
)

// SuggestVehicleType proposes a vehicle type from the description keywords
// and the brand's commercial status. Motorcycle terms win over truck terms;
// a commercial brand without explicit keywords still suggests camioneta.
func (l *Lookup) SuggestVehicleType(brand, description string) string {
	t := l.norm.Normalize(description)
	switch {
	case motoTermsRe.MatchString(t):
		return TypeMotorcycle
	case truckTermsRe.MatchString(t):
		return TypeTruck
	case l.IsCommercial(brand):
		return TypeTruck
	default:
		return TypeAuto
	}
}
