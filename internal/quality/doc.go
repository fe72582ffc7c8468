// Package quality defines the fixed quality tier ladder and negotiates
// the target tier for a transcode request.
//
// Each tier binds a resolution, video/audio bitrate and quality factor.
// Negotiation never upscales: the resolved tier is the lower of the
// requested tier and the capability derived from the source's height.
package quality
