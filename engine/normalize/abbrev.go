package normalize

// DefaultAbbreviations maps catalog shorthand to expanded words. The set is
// biased towards Latin American insurance catalogs, where descriptions mix
// Spanish trim abbreviations with manufacturer codes. Externally supplied
// dictionaries replace (not extend) this table.
var DefaultAbbreviations = map[string]string{
	// transmission
	"aut":    "automatico",
	"autom":  "automatico",
	"at":     "automatico",
	"std":    "estandar",
	"mec":    "mecanico",
	"tm":     "transmision manual",
	"ta":     "transmision automatica",
	// body / doors / seats
	"pts":  "puertas",
	"ptas": "puertas",
	"pta":  "puerta",
	"pas":  "pasajeros",
	"pack": "paquete",
	"hb":   "hatchback",
	"sw":   "station wagon",
	"conv": "convertible",
	"pick": "pickup",
	"p.u":  "pickup",
	// engine / fuel
	"cil": "cilindros",
	"cc":  "centimetros cubicos",
	"hp":  "caballos",
	"dsl": "diesel",
	"tdi": "turbo diesel",
	"ee":  "equipo electrico",
	// misc equipment
	"a.a": "aire acondicionado",
	"aa":  "aire acondicionado",
	"q.c": "quemacocos",
	"v.e": "vidrios electricos",
	"abs": "frenos antibloqueo",
	"b.a": "bolsas de aire",
	"gt":  "gran turismo",
	"4p":  "4 puertas",
	"5p":  "5 puertas",
	"2p":  "2 puertas",
}
