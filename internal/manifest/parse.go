package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tailscale/hujson"
)

var errNotObject = errors.New("manifest must be a JSON object")

// parseJSON parses a manifest tolerating comments and trailing commas.
// A payload that is itself a JSON string is parsed a second time.
func parseJSON(data []byte) (map[string]any, error) {
	var value any
	for range 2 {
		standard, err := hujson.Standardize(data)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(standard, &value); err != nil {
			return nil, err
		}
		s, ok := value.(string)
		if !ok {
			break
		}
		data = []byte(s)
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return obj, nil
}

// legacyKeys maps legacy service keys to their current names
var legacyKeys = []struct{ from, to string }{
	{"serviceName", "name"},
	{"serviceGroup", "group"},
	{"serviceVersion", "version"},
	{"servicePort", "port"},
}

func hasLegacyKeys(content map[string]any) bool {
	for _, k := range legacyKeys {
		if _, ok := content[k.from]; ok {
			return true
		}
	}
	return false
}

// translateLegacy rewrites legacy keys of service and daemon manifests in place.
// Current keys win over their legacy counterparts.
func translateLegacy(content map[string]any) {
	for _, k := range legacyKeys {
		v, ok := content[k.from]
		if !ok {
			continue
		}
		delete(content, k.from)
		if _, exists := content[k.to]; exists {
			continue
		}
		content[k.to] = v
	}
}

// normalize applies type inference, legacy translation and defaults, and
// builds the Document
func normalize(content map[string]any, path, folder string) (*Document, error) {
	docType, _ := content["type"].(string)
	if docType == "" {
		docType = TypeCustom
		if hasLegacyKeys(content) {
			docType = TypeService
		}
		content["type"] = docType
	}

	if docType == TypeService || docType == TypeDaemon {
		translateLegacy(content)
	}

	version, err := versionString(content["version"])
	if err != nil {
		return nil, err
	}
	content["version"] = version

	name, _ := content["name"].(string)
	return &Document{
		Type:    docType,
		Version: version,
		Name:    strings.TrimSpace(name),
		Content: content,
		Path:    path,
		Folder:  folder,
	}, nil
}

func versionString(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return DefaultVersion, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return DefaultVersion, nil
		}
		return strings.TrimSpace(val), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	default:
		return "", fmt.Errorf("version must be a string or number, got %T", v)
	}
}
