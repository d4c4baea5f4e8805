package connectors

// registered holds every wired connector. Adding a new inventory source
// means implementing Connector and appending it here.
var registered = []Connector{
	NewSampleExternalAPI(),
}

// Connectors returns all registered connectors in registration order.
func Connectors() []Connector {
	out := make([]Connector, len(registered))
	copy(out, registered)
	return out
}

// FindConnector returns the connector with the given name, or nil.
func FindConnector(name string) Connector {
	for _, c := range registered {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// ConnectorNames lists the names of all registered connectors.
func ConnectorNames() []string {
	names := make([]string, 0, len(registered))
	for _, c := range registered {
		names = append(names, c.Name())
	}
	return names
}
