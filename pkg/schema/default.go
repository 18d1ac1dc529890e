package schema

// Asset types of the built-in OT security catalogue
const (
	TypeHost        = "Host"
	TypeServer      = "Server"
	TypeWorkstation = "Workstation"
	TypeHMI         = "HMI"
	TypePLC         = "PLC"
	TypeFirewall    = "Firewall"
	TypeNetwork     = "Network"
	TypeGateway     = "Gateway"
	TypeProcess     = "Process"
	TypeDataStore   = "DataStore"
	TypeHuman       = "Human"
)

var computeTypes = []string{TypeHost, TypeServer, TypeWorkstation, TypeHMI}

var networkedTypes = []string{
	TypeHost, TypeServer, TypeWorkstation, TypeHMI, TypePLC,
	TypeFirewall, TypeNetwork, TypeGateway,
}

// DefaultRelationTypes is the built-in OT security catalogue
var DefaultRelationTypes = []RelationType{
	{Name: "runs-on", Label: "runs on", From: []string{TypeProcess}, To: computeTypes},
	{Name: "connects-to", Label: "connects to", From: networkedTypes, To: networkedTypes},
	{Name: "reads-from", Label: "reads from", From: []string{TypeProcess}, To: []string{TypeDataStore}},
	{Name: "writes-to", Label: "writes to", From: []string{TypeProcess}, To: []string{TypeDataStore}},
	{Name: "stored-on", Label: "stored on", From: []string{TypeDataStore}, To: computeTypes},
	{Name: "controls", Label: "controls", From: []string{TypeHMI, TypeWorkstation}, To: []string{TypePLC}},
	{Name: "protects", Label: "protects", From: []string{TypeFirewall}, To: []string{TypeNetwork, TypeHost, TypeServer}},
	{Name: "operates", Label: "operates", From: []string{TypeHuman}, To: []string{TypeHMI, TypeWorkstation}},
	{Name: "administers", Label: "administers", From: []string{TypeHuman}, To: []string{TypeHost, TypeServer, TypeFirewall, TypeNetwork}},
}

// DefaultCatalogue returns the built-in catalogue
func DefaultCatalogue() *Catalogue {
	c, err := NewCatalogue(DefaultRelationTypes)
	if err != nil {
		panic("schema: invalid default catalogue: " + err.Error())
	}
	return c
}
