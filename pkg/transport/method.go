package transport

// Method identifies a remote platform method and the version of its wire
// contract. The response to a method arrives inside an <info> element
// qualified by a method-specific namespace; ResponseNamespace reports it.
type Method struct {
	Name    string
	Version int
}

const responseNamespacePrefix = "urn:com.microsoft.wc.methods.response."

// ResponseNamespace returns the namespace URN qualifying this method's
// response <info> element.
func (m Method) ResponseNamespace() string {
	return responseNamespacePrefix + m.Name
}

// Methods used by the typed clients. Versions track the platform contract,
// not the SDK.
var (
	MethodGetThings                         = Method{Name: "GetThings", Version: 3}
	MethodPutThings                         = Method{Name: "PutThings", Version: 2}
	MethodRemoveThings                      = Method{Name: "RemoveThings", Version: 1}
	MethodGetPersonInfo                     = Method{Name: "GetPersonInfo", Version: 1}
	MethodGetAuthorizedRecords              = Method{Name: "GetAuthorizedRecords", Version: 1}
	MethodGetApplicationSettings            = Method{Name: "GetApplicationSettings", Version: 1}
	MethodSetApplicationSettings            = Method{Name: "SetApplicationSettings", Version: 1}
	MethodGetServiceDefinition              = Method{Name: "GetServiceDefinition", Version: 2}
	MethodGetVocabulary                     = Method{Name: "GetVocabulary", Version: 2}
	MethodSearchVocabulary                  = Method{Name: "SearchVocabulary", Version: 1}
	MethodCreateAuthenticatedSessionToken   = Method{Name: "CreateAuthenticatedSessionToken", Version: 2}
)
