package epub

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// encryptionPath is the standard path of the encryption descriptor.
const encryptionPath = "META-INF/encryption.xml"

// sinfPath marks Apple FairPlay protection.
const sinfPath = "META-INF/sinf.xml"

// Font obfuscation algorithms. The obfuscation key is derived from the
// unique identifier of the source publication, so obfuscated fonts cannot
// move into a package with another identifier.
var fontObfuscationAlgorithms = map[string]bool{
	"http://www.idpf.org/2008/embedding": true,
	"http://ns.adobe.com/pdf/enc#RC":     true,
}

type xmlEncryption struct {
	XMLName       xml.Name           `xml:"encryption"`
	EncryptedData []xmlEncryptedData `xml:"EncryptedData"`
}

type xmlEncryptedData struct {
	EncryptionMethod struct {
		Algorithm string `xml:"Algorithm,attr"`
	} `xml:"EncryptionMethod"`
	CipherReference struct {
		URI string `xml:"URI,attr"`
	} `xml:"CipherData>CipherReference"`
}

// checkTransferable rejects chapter containers whose entries cannot be
// copied into another package: DRM-protected ones and ones with obfuscated
// fonts. An encryption descriptor without entries is accepted.
func checkTransferable(c *Container) error {
	if c.Has(sinfPath) {
		return fmt.Errorf("epub: %s is DRM protected: %w", c.Name(), ErrParse)
	}
	if !c.Has(encryptionPath) {
		return nil
	}

	data, err := c.ReadBinary(encryptionPath)
	if err != nil {
		return err
	}

	var enc xmlEncryption
	if err := xml.Unmarshal(stripBOM(data), &enc); err != nil {
		return fmt.Errorf("epub: parse %s in %s: %w: %w", encryptionPath, c.Name(), ErrParse, err)
	}

	for _, ed := range enc.EncryptedData {
		algo := strings.TrimSpace(ed.EncryptionMethod.Algorithm)
		if fontObfuscationAlgorithms[algo] {
			return fmt.Errorf("epub: %s has an obfuscated font %s bound to its identifier: %w",
				c.Name(), ed.CipherReference.URI, ErrParse)
		}
		return fmt.Errorf("epub: %s has encrypted entry %s (%s): %w",
			c.Name(), ed.CipherReference.URI, algo, ErrParse)
	}
	return nil
}
