package cds

import "strings"

// UPnP object classes.
const (
	ClassObject            = "object"
	ClassContainer         = "object.container"
	ClassStorageFolder     = "object.container.storageFolder"
	ClassPlaylistContainer = "object.container.playlistContainer"
	ClassMusicAlbum        = "object.container.album.musicAlbum"
	ClassMusicArtist       = "object.container.person.musicArtist"
	ClassMusicGenre        = "object.container.genre.musicGenre"

	ClassItem           = "object.item"
	ClassAudioItem      = "object.item.audioItem"
	ClassMusicTrack     = "object.item.audioItem.musicTrack"
	ClassAudioBroadcast = "object.item.audioItem.audioBroadcast"
	ClassImageItem      = "object.item.imageItem"
	ClassPhoto          = "object.item.imageItem.photo"
	ClassVideoItem      = "object.item.videoItem"
	ClassMovie          = "object.item.videoItem.movie"
	ClassVideoBroadcast = "object.item.videoItem.videoBroadcast"
	ClassTextItem       = "object.item.textItem"
	ClassPlaylistItem   = "object.item.playlistItem"
)

// mimeClasses maps a MIME type to its UPnP class. Types not listed here fall
// back to their major type.
var mimeClasses = map[string]string{
	"audio/mpeg":             ClassMusicTrack,
	"audio/flac":             ClassMusicTrack,
	"audio/x-flac":           ClassMusicTrack,
	"audio/ogg":              ClassMusicTrack,
	"audio/mp4":              ClassMusicTrack,
	"audio/x-ms-wma":         ClassMusicTrack,
	"audio/x-mpegurl":        ClassPlaylistContainer,
	"audio/x-scpls":          ClassPlaylistContainer,
	"application/vnd.ms-wpl": ClassPlaylistContainer,
	"image/jpeg":             ClassPhoto,
	"image/heic":             ClassPhoto,
	"image/heif":             ClassPhoto,
	"text/plain":             ClassTextItem,
}

// ClassForMimeType returns the UPnP class an importer would assign to a file
// of the given MIME type.
func ClassForMimeType(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if base, _, ok := strings.Cut(mimeType, ";"); ok {
		mimeType = strings.TrimSpace(base)
	}
	if class, ok := mimeClasses[mimeType]; ok {
		return class
	}

	major, _, _ := strings.Cut(mimeType, "/")
	switch major {
	case "audio":
		return ClassAudioItem
	case "video":
		return ClassVideoItem
	case "image":
		return ClassImageItem
	case "text":
		return ClassTextItem
	default:
		return ClassItem
	}
}

// IsContainerClass reports whether class names a container class.
func IsContainerClass(class string) bool {
	return class == ClassContainer || strings.HasPrefix(class, ClassContainer+".")
}

// DerivedFrom reports whether class equals base or is a subclass of it.
func DerivedFrom(class, base string) bool {
	class, base = strings.ToLower(class), strings.ToLower(base)
	return class == base || strings.HasPrefix(class, base+".")
}
