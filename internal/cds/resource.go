package cds

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	resourceSeparator     = "|"
	resourcePartSeparator = "~"
)

// Purpose tags what a resource is for.
type Purpose int

const (
	// PurposeContent is the default stream of an item.
	PurposeContent Purpose = iota
	// PurposeThumbnail is a reduced image rendition.
	PurposeThumbnail
	// PurposeSubtitle is a subtitle track.
	PurposeSubtitle
	// PurposeTranscode is a transcoded variant produced on demand.
	PurposeTranscode
)

func (p Purpose) String() string {
	switch p {
	case PurposeContent:
		return "content"
	case PurposeThumbnail:
		return "thumbnail"
	case PurposeSubtitle:
		return "subtitle"
	case PurposeTranscode:
		return "transcode"
	default:
		return "purpose(" + strconv.Itoa(int(p)) + ")"
	}
}

// Well-known resource attribute names.
const (
	AttrSize            = "size"
	AttrDuration        = "duration"
	AttrBitrate         = "bitrate"
	AttrSampleFrequency = "sampleFrequency"
	AttrNrAudioChannels = "nrAudioChannels"
	AttrResolution      = "resolution"
	AttrColorDepth      = "colorDepth"
)

// Resource is one renderable rendition of an item.
type Resource struct {
	Purpose      Purpose
	ProtocolInfo string
	Attributes   Dict
	Parameters   Dict
}

// Encode serializes a resource as purpose~protocolInfo~attributes~parameters.
func (r Resource) Encode() string {
	return strings.Join([]string{
		strconv.Itoa(int(r.Purpose)),
		escape(r.ProtocolInfo),
		r.Attributes.Encode(),
		r.Parameters.Encode(),
	}, resourcePartSeparator)
}

// DecodeResource parses one encoded resource. Two to four parts are accepted;
// missing trailing parts decode as empty.
func DecodeResource(s string) (Resource, error) {
	parts := strings.Split(s, resourcePartSeparator)
	if len(parts) < 2 || len(parts) > 4 {
		return Resource{}, fmt.Errorf("could not parse resource %q: %d parts", s, len(parts))
	}

	purpose, err := strconv.Atoi(parts[0])
	if err != nil {
		return Resource{}, fmt.Errorf("could not parse resource purpose %q: %w", parts[0], err)
	}
	protocolInfo, err := url.QueryUnescape(parts[1])
	if err != nil {
		return Resource{}, fmt.Errorf("could not parse resource protocol info: %w", err)
	}

	res := Resource{Purpose: Purpose(purpose), ProtocolInfo: protocolInfo}
	if len(parts) > 2 {
		if res.Attributes, err = DecodeDict(parts[2]); err != nil {
			return Resource{}, err
		}
	}
	if len(parts) > 3 {
		if res.Parameters, err = DecodeDict(parts[3]); err != nil {
			return Resource{}, err
		}
	}
	return res, nil
}

// EncodeResources joins encoded resources with '|'. An empty list encodes to "".
func EncodeResources(resources []Resource) string {
	encoded := make([]string, len(resources))
	for i, r := range resources {
		encoded[i] = r.Encode()
	}
	return strings.Join(encoded, resourceSeparator)
}

// DecodeResources parses the output of EncodeResources.
func DecodeResources(s string) ([]Resource, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, resourceSeparator)
	resources := make([]Resource, 0, len(parts))
	for i, part := range parts {
		res, err := DecodeResource(part)
		if err != nil {
			return nil, fmt.Errorf("resource %d: %w", i, err)
		}
		resources = append(resources, res)
	}
	return resources, nil
}
