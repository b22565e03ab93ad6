package nv04

// Object classes.
const (
	ClassM2MF        = 0x0039
	ClassSurfaces2D  = 0x0042
	ClassGDIRect     = 0x004a
	ClassSurfaces3D  = 0x0053
	ClassDX5Triangle = 0x0054
	ClassNV05DX5     = 0x0094
)

// DX5 textured triangle methods.
const (
	dx5DMANotify = 0x0180
	dx5DMAA      = 0x0184
	dx5DMAB      = 0x0188
	dx5Surface   = 0x018c
	dx5ColorKey  = 0x0300
	dx5Offset    = 0x0304
	dx5Format    = 0x0308
	dx5Filter    = 0x030c
	dx5Blend     = 0x0310
	dx5Control   = 0x0314
	dx5FogColor  = 0x0318

	// TLVertexWords is the size of one vertex slot.
	TLVertexWords = 8

	// NumSlots is the number of TLVERTEX slots.
	NumSlots = 16
)

// TLVertex returns the first method of vertex slot i.
func TLVertex(i int) uint32 { return 0x0400 + uint32(i)*TLVertexWords*4 }

// DrawPrimitive returns draw-primitive method i.
func DrawPrimitive(i int) uint32 { return 0x0600 + uint32(i)*4 }

// DX5 FORMAT fields.
const (
	formatDMAA       = 1
	formatDMAB       = 2
	formatOriginZOH  = 2 << 4 // corner
	formatOriginFOH  = 2 << 6 // corner
	formatColorShift = 8
	formatLevelShift = 12
	formatUShift     = 16
	formatVShift     = 20
	formatAddrUShift = 24
	formatAddrVShift = 28

	texColorY8       = 1
	texColorA1R5G5B5 = 2
	texColorX1R5G5B5 = 3
	texColorA4R4G4B4 = 4
	texColorR5G6B5   = 5
	texColorA8R8G8B8 = 6
	texColorX8R8G8B8 = 7

	addrWrap   = 1
	addrMirror = 2
	addrClamp  = 3
)

// DX5 FILTER fields.
const (
	filterMinifyShift  = 24
	filterMagnifyShift = 28

	filterNearest              = 1
	filterLinear               = 2
	filterNearestMipmapNearest = 3
	filterLinearMipmapNearest  = 4
	filterNearestMipmapLinear  = 5
	filterLinearMipmapLinear   = 6
)

// DX5 BLEND fields.
const (
	blendTexDecal         = 1
	blendTexModulate      = 2
	blendTexModulateAlpha = 4
	blendShadeShift       = 6
	blendPerspective      = 1 << 8
	blendSpecular         = 1 << 12
	blendFog              = 1 << 16
	blendEnable           = 1 << 20
	blendSrcShift         = 24
	blendDstShift         = 28

	shadeFlat    = 1
	shadeGouraud = 2
)

// D3D blend factors.
const (
	factorZero        = 1
	factorOne         = 2
	factorSrcColor    = 3
	factorInvSrcColor = 4
	factorSrcAlpha    = 5
	factorInvSrcAlpha = 6
	factorDstAlpha    = 7
	factorInvDstAlpha = 8
	factorDstColor    = 9
	factorInvDstColor = 10
	factorSrcAlphaSat = 11
)

// DX5 CONTROL fields.
const (
	compareAlways      = 8
	controlAlphaShift  = 8
	controlAlphaEnable = 1 << 12
	controlOrigin      = 1 << 13 // corner
	controlZEnable     = 1 << 14
	controlZFuncShift  = 16
	controlCullShift   = 20
	controlDither      = 1 << 22
	controlZWrite      = 0x3f << 24
	controlZFixed      = 1 << 30

	cullNone = 1
	cullCW   = 2
	cullCCW  = 3
)

// Context surfaces 3-D methods.
const (
	surf3dDMANotify   = 0x0180
	surf3dDMAColor    = 0x0184
	surf3dDMAZeta     = 0x0188
	surf3dClipH       = 0x02f8
	surf3dClipV       = 0x02fc
	surf3dFormat      = 0x0300
	surf3dClipSize    = 0x0304
	surf3dPitch       = 0x0308
	surf3dOffsetColor = 0x030c
	surf3dOffsetZeta  = 0x0310

	surfColorA8R8G8B8 = 8
	surfTypePitch     = 1 << 8
)

// Memory-to-memory format methods.
const (
	m2mfDMANotify  = 0x0180
	m2mfDMAIn      = 0x0184
	m2mfDMAOut     = 0x0188
	m2mfOffsetIn   = 0x030c
	m2mfOffsetOut  = 0x0310
	m2mfPitchIn    = 0x0314
	m2mfPitchOut   = 0x0318
	m2mfLineLength = 0x031c
	m2mfLineCount  = 0x0320
	m2mfFormat     = 0x0324
	m2mfBufNotify  = 0x0328

	// m2mfFormat1x1 copies bytes with unit input and output increments.
	m2mfFormat1x1 = 0x0101

	maxM2MFPitch = 32767
	maxM2MFLines = 2047
)

// Context surfaces 2-D methods.
const (
	surf2dDMANotify    = 0x0180
	surf2dDMASource    = 0x0184
	surf2dDMADest      = 0x0188
	surf2dFormat       = 0x0300
	surf2dPitch        = 0x0304
	surf2dOffsetSource = 0x0308
	surf2dOffsetDest   = 0x030c

	surf2dY8       = 0x01
	surf2dR5G6B5   = 0x04
	surf2dY16      = 0x05
	surf2dA8R8G8B8 = 0x0a
	surf2dY32      = 0x0b
)

// GDI rectangle methods.
const (
	rectDMANotify  = 0x0180
	rectSurface    = 0x0198
	rectOperation  = 0x02fc
	rectColorFmt   = 0x0300
	rectMonoFormat = 0x0304
	rectColor1A    = 0x03fc

	rectOpSrcCopy   = 3
	rectMonoLE      = 2
	rectA16R5G6B5   = 1
	rectX16A1R5G5B5 = 2
	rectA8R8G8B8    = 3
)

// rectPoint returns the unclipped rectangle method pair i.
func rectPoint(i int) uint32 { return 0x0400 + uint32(i)*8 }
