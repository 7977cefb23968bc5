//go:build ignore

// mkdisk generates MINIX v3 test images under testdata/:
//
//	minix-fs.img    a bare filesystem
//	minix-disk.img  a partitioned disk with the same filesystem in
//	                primary partition 0 at LBA 2048
//
// Run with: go run testdata/mkdisk.go
package main

import (
	"encoding/binary"
	"fmt"
	"os"
)

const (
	blockSize  = 1024
	ninodes    = 64
	firstData  = 8 // boot, super, 2 bitmap blocks, 4 inode-table blocks
	totalZones = 1024

	modeDir     = 0o040000
	modeRegular = 0o100000
)

func main() {
	fs := buildFS()

	if err := os.WriteFile("testdata/minix-fs.img", fs, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "minix-fs.img: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Created minix-fs.img")

	if err := os.WriteFile("testdata/minix-disk.img", buildDisk(fs), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "minix-disk.img: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Created minix-disk.img")
}

func buildFS() []byte {
	img := make([]byte, totalZones*blockSize)

	// superblock at byte 1024
	sb := img[1024:]
	binary.LittleEndian.PutUint32(sb[0:4], ninodes)
	binary.LittleEndian.PutUint16(sb[6:8], 1)  // i_blocks
	binary.LittleEndian.PutUint16(sb[8:10], 1) // z_blocks
	binary.LittleEndian.PutUint16(sb[10:12], firstData)
	binary.LittleEndian.PutUint16(sb[12:14], 0) // log_zone_size
	binary.LittleEndian.PutUint32(sb[16:20], 0x7FFFFFFF)
	binary.LittleEndian.PutUint32(sb[20:24], totalZones)
	binary.LittleEndian.PutUint16(sb[24:26], 0x4D5A)
	binary.LittleEndian.PutUint16(sb[28:30], blockSize)

	setInode := func(n uint32, mode uint16, size uint32, zones ...uint32) {
		b := img[4*blockSize+int(n-1)*64:]
		binary.LittleEndian.PutUint16(b[0:2], mode)
		binary.LittleEndian.PutUint16(b[2:4], 1)
		binary.LittleEndian.PutUint32(b[8:12], size)
		for i, z := range zones {
			binary.LittleEndian.PutUint32(b[24+i*4:28+i*4], z)
		}
	}
	putEntry := func(zone uint32, slot int, inode uint32, name string) {
		b := img[int(zone)*blockSize+slot*64:]
		binary.LittleEndian.PutUint32(b[0:4], inode)
		copy(b[4:64], name)
	}

	// / with hello.txt, a sparse file and a subdirectory
	setInode(1, modeDir|0o755, 5*64, firstData)
	putEntry(firstData, 0, 1, ".")
	putEntry(firstData, 1, 1, "..")
	putEntry(firstData, 2, 2, "hello.txt")
	putEntry(firstData, 3, 3, "sparse.bin")
	putEntry(firstData, 4, 4, "dir")

	copy(img[9*blockSize:], "Hello from a MINIX v3 image!\n")
	setInode(2, modeRegular|0o644, 29, 9)

	// sparse.bin: data, hole, data
	copy(img[10*blockSize:], fill(blockSize, 0x11))
	copy(img[11*blockSize:], fill(blockSize, 0x22))
	setInode(3, modeRegular|0o600, 3*blockSize, 10, 0, 11)

	setInode(4, modeDir|0o755, 3*64, 12)
	putEntry(12, 0, 4, ".")
	putEntry(12, 1, 1, "..")
	putEntry(12, 2, 5, "nested.txt")

	copy(img[13*blockSize:], "nested\n")
	setInode(5, modeRegular|0o644, 7, 13)

	return img
}

func buildDisk(fs []byte) []byte {
	const startLBA = 2048

	disk := make([]byte, startLBA*512+len(fs))

	// MBR with one MINIX partition
	writePartEntry(disk[446:462], 0x00, 0x81, startLBA, uint32(len(fs)/512))
	disk[510] = 0x55
	disk[511] = 0xAA

	copy(disk[startLBA*512:], fs)
	return disk
}

func writePartEntry(entry []byte, boot, ptype byte, startLBA, sizeLBA uint32) {
	entry[0] = boot
	entry[4] = ptype
	binary.LittleEndian.PutUint32(entry[8:12], startLBA)
	binary.LittleEndian.PutUint32(entry[12:16], sizeLBA)
}

func fill(n int, b byte) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = b
	}
	return buf
}
