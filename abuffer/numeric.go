package abuffer

import "encoding/binary"

// WriteUint8 appends a single byte.
func (b *Buffer) WriteUint8(v uint8) { b.WriteBytes([]byte{v}) }

// ReadUint8 consumes and returns a single byte.
func (b *Buffer) ReadUint8() uint8 {
	var buf [1]byte
	b.Read(buf[:])
	return buf[0]
}

// WriteUint16 appends v using the buffer's default byte order.
func (b *Buffer) WriteUint16(v uint16) { b.writeUint16(v, b.defaultOrder) }

// WriteUint16BE/WriteUint16LE append v in an explicit byte order.
func (b *Buffer) WriteUint16BE(v uint16) { b.writeUint16(v, binary.BigEndian) }
func (b *Buffer) WriteUint16LE(v uint16) { b.writeUint16(v, binary.LittleEndian) }

func (b *Buffer) writeUint16(v uint16, order binary.ByteOrder) {
	var buf [2]byte
	order.PutUint16(buf[:], v)
	b.WriteBytes(buf[:])
}

// ReadUint16 consumes 2 bytes using the buffer's default byte order.
func (b *Buffer) ReadUint16() uint16 { return b.readUint16(b.defaultOrder) }

// ReadUint16BE/ReadUint16LE consume 2 bytes in an explicit byte order.
func (b *Buffer) ReadUint16BE() uint16 { return b.readUint16(binary.BigEndian) }
func (b *Buffer) ReadUint16LE() uint16 { return b.readUint16(binary.LittleEndian) }

func (b *Buffer) readUint16(order binary.ByteOrder) uint16 {
	var buf [2]byte
	b.Read(buf[:])
	return order.Uint16(buf[:])
}

// WriteUint24 appends the low 24 bits of v using the buffer's default byte
// order. There is no encoding/binary support for 3-byte integers, so this
// is hand-rolled.
func (b *Buffer) WriteUint24(v uint32) { b.writeUint24(v, b.defaultOrder) }
func (b *Buffer) WriteUint24BE(v uint32) { b.writeUint24(v, binary.BigEndian) }
func (b *Buffer) WriteUint24LE(v uint32) { b.writeUint24(v, binary.LittleEndian) }

func (b *Buffer) writeUint24(v uint32, order binary.ByteOrder) {
	var buf [3]byte
	if order == binary.BigEndian {
		buf[0], buf[1], buf[2] = byte(v>>16), byte(v>>8), byte(v)
	} else {
		buf[0], buf[1], buf[2] = byte(v), byte(v>>8), byte(v>>16)
	}
	b.WriteBytes(buf[:])
}

func (b *Buffer) ReadUint24() uint32   { return b.readUint24(b.defaultOrder) }
func (b *Buffer) ReadUint24BE() uint32 { return b.readUint24(binary.BigEndian) }
func (b *Buffer) ReadUint24LE() uint32 { return b.readUint24(binary.LittleEndian) }

func (b *Buffer) readUint24(order binary.ByteOrder) uint32 {
	var buf [3]byte
	b.Read(buf[:])
	if order == binary.BigEndian {
		return uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2])
	}
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16
}

func (b *Buffer) WriteUint32(v uint32)   { b.writeUint32(v, b.defaultOrder) }
func (b *Buffer) WriteUint32BE(v uint32) { b.writeUint32(v, binary.BigEndian) }
func (b *Buffer) WriteUint32LE(v uint32) { b.writeUint32(v, binary.LittleEndian) }

func (b *Buffer) writeUint32(v uint32, order binary.ByteOrder) {
	var buf [4]byte
	order.PutUint32(buf[:], v)
	b.WriteBytes(buf[:])
}

func (b *Buffer) ReadUint32() uint32   { return b.readUint32(b.defaultOrder) }
func (b *Buffer) ReadUint32BE() uint32 { return b.readUint32(binary.BigEndian) }
func (b *Buffer) ReadUint32LE() uint32 { return b.readUint32(binary.LittleEndian) }

func (b *Buffer) readUint32(order binary.ByteOrder) uint32 {
	var buf [4]byte
	b.Read(buf[:])
	return order.Uint32(buf[:])
}

func (b *Buffer) WriteUint64(v uint64)   { b.writeUint64(v, b.defaultOrder) }
func (b *Buffer) WriteUint64BE(v uint64) { b.writeUint64(v, binary.BigEndian) }
func (b *Buffer) WriteUint64LE(v uint64) { b.writeUint64(v, binary.LittleEndian) }

func (b *Buffer) writeUint64(v uint64, order binary.ByteOrder) {
	var buf [8]byte
	order.PutUint64(buf[:], v)
	b.WriteBytes(buf[:])
}

func (b *Buffer) ReadUint64() uint64   { return b.readUint64(b.defaultOrder) }
func (b *Buffer) ReadUint64BE() uint64 { return b.readUint64(binary.BigEndian) }
func (b *Buffer) ReadUint64LE() uint64 { return b.readUint64(binary.LittleEndian) }

func (b *Buffer) readUint64(order binary.ByteOrder) uint64 {
	var buf [8]byte
	b.Read(buf[:])
	return order.Uint64(buf[:])
}
