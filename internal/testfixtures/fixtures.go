// Package testfixtures holds captured meter traffic for tests.
package testfixtures

import (
	"encoding/hex"

	"github.com/sigurn/crc16"
)

// LGE570Key is the AES-128 key of the LGE570Encrypted capture.
const LGE570Key = "101112131415161718191A1B1C1D1E1F"

// LGE450 holds an L+G E450 push with general block transfer. Frames 1-2 are the tail of an
// earlier telegram that is restarted by frame 3.
var LGE450 = frames(
	"7EA084CEFF0313128BE6E700E04000010000700F0000CBC20C07E50706020E3A05FF80000002100110020412002809060008190900FF0F02120000020412002809060008190900FF0F011200000204120001090600002A0000FF0F02120000020412000109060000600101FF0F02120000020412000809060000010000FF0F0212000077C87E",
	"7EA07DCEFF0313D045E040000200006C020412000309060100010700FF0F02120000020412000309060100020700FF0F02120000020412000309060100030700FF0F02120000020412000309060100040700FF0F02120000020412000309060101010800FF0F02120000020412000309060101020800FF0F02120000B3987E",
	"7EA084CEFF0313128BE6E700E04000010000700F0000CBC60C07E50706020E3A10FF80000002100110020412002809060008190900FF0F02120000020412002809060008190900FF0F011200000204120001090600002A0000FF0F02120000020412000109060000600101FF0F02120000020412000809060000010000FF0F0212000027737E",
	"7EA07DCEFF0313D045E040000200006C020412000309060100010700FF0F02120000020412000309060100020700FF0F02120000020412000309060100030700FF0F02120000020412000309060100040700FF0F02120000020412000309060101010800FF0F02120000020412000309060101020800FF0F02120000B3987E",
	"7EA08BCEFF0313EEE1E040000300007A020412000309060101050800FF0F02120000020412000309060101060800FF0F02120000020412000309060101070800FF0F02120000020412000309060101080800FF0F021200000204120003090601000D0700FF0F0212000009060008190900FF09104C475A313033303635353933333531320907313933353B2A7E",
	"7EA057CEFF0313E969E0C00004000046393132090C07E50706020E3A12FF800081060000001C06000000000600000000060000000A06000D88C10600000000060000001206000000010600000000060004720D1203ADC2CE7E",
)

// LGE450OutOfSequence holds an L+G E450 push whose block transfer repeats block 2.
var LGE450OutOfSequence = frames(
	"7EA084CEFF0313128BE6E700E04000010000700F0000C9600C07E50706020E0737FF80000002100110020412002809060008190900FF0F02120000020412002809060008190900FF0F011200000204120001090600002A0000FF0F02120000020412000109060000600101FF0F02120000020412000809060000010000FF0F0212000035377E",
	"7EA07DCEFF0313D045E040000200006C020412000309060100010700FF0F02120000020412000309060100020700FF0F02120000020412000309060100030700FF0F02120000020412000309060100040700FF0F02120000020412000309060101010800FF0F02120000020412000309060101020800FF0F02120000B3987E",
	"7EA07DCEFF0313D045E040000200006C020412000309060100010700FF0F02120000020412000309060100020700FF0F02120000020412000309060100030700FF0F02120000020412000309060100040700FF0F02120000020412000309060101010800FF0F02120000020412000309060101020800FF0F02120000B3987E",
	"7EA08BCEFF0313EEE1E040000300007A020412000309060101050800FF0F02120000020412000309060101060800FF0F02120000020412000309060101070800FF0F02120000020412000309060101080800FF0F021200000204120003090601000D0700FF0F0212000009060008190900FF09104C475A313033303635353933333531320907313933353B2A7E",
	"7EA057CEFF0313E969E0C00004000046393132090C07E50706020E0813FF800081060000000006000000000600000000060000000006000D88C10600000000060000001206000000010600000000060004720D1203E8AD297E",
)

// LGE450NoClock holds an L+G E450 push without clock object, identity in 0.0.96.1.0.255.
var LGE450NoClock = frames(
	"7EA084CEFF0313128BE6E700E04000010000700F0003B5330C07E60B160210251EFF800000020B010B020412002809060008190900FF0F02120000020412002809060008190900FF0F01120000020412000109060000600100FF0F02120000020412000309060100010700FF0F02120000020412000309060100020700FF0F021200004C217E",
	"7EA08BCEFF0313EEE1E040000200007A020412000309060101010800FF0F02120000020412000309060101020800FF0F02120000020412000309060101050800FF0F02120000020412000309060101060800FF0F02120000020412000309060101070800FF0F02120000020412000309060101080800FF0F0212000009060008190900FF0908343433338B527E",
	"7EA03DCEFF0313F284E0C0000300002C373831310600000309060000000006017FBFEB0600437ADE06002FCDAE06000033BF060037702E0600F0415840EF7E",
)

// IskraAM550 holds an Iskra AM550 push split with HDLC segmentation.
var IskraAM550 = frames(
	"7EA8A4CF0223039996E6E7000F000004330C07E4080F0606132D00FF8880021C011C020412002809060006190900FF0F02120000020412002809060006190900FF0F011200000204120001090600002A0000FF0F02120000020412000109060000600101FF0F02120000020412000809060000010000FF0F02120000020412000309060101010700FF0F02120000020412000309060101020700FF0F02120000020412374F7E",
	"7EA8A4CF0223039996000309060101030700FF0F02120000020412000309060101040700FF0F02120000020412000309060101010800FF0F02120000020412000309060101010801FF0F02120000020412000309060101010802FF0F02120000020412000309060101020800FF0F02120000020412000309060101020801FF0F02120000020412000309060101020802FF0F02120000020412000309060101050800FF00007E",
	"7EA8A4CF02230399960F02120000020412000309060101050801FF0F02120000020412000309060101050802FF0F02120000020412000309060101060800FF0F02120000020412000309060101060801FF0F02120000020412000309060101060802FF0F02120000020412000309060101070800FF0F02120000020412000309060101070801FF0F02120000020412000309060101070802FF0F021200000204120003B2E47E",
	"7EA8A4CF022303999609060101080800FF0F02120000020412000309060101080801FF0F02120000020412000309060101080802FF0F021200000204120003090601000D0700FF0F0212000009060006190900FF091049534B31303330373735323133383539090731383736333530090C07E4080F0606132D00FF8880060000000006000000000600000000060000000006005F0EA506002F442F06002FCA76060000BEFE7E",
	"7EA055CF022313A233000006000000000600000000060005477C060003843F060001C33D0600000009060000000906000000000600000000060000000006000000000600010AF706000094B00600007647120000127B7E",
)

// LGE570Encrypted holds an L+G E570 push ciphered with LGE570Key.
var LGE570Encrypted = frames(
	"7EA088CE9B03130E9AE6E700E0400001000074DB084C475A67742062958201FF20000024762F1388340813B4C927EC19C39FA936B6F7A3FE6F63CE155C0BE7585D3EAE762C0E391AE4ACBA9D9C2400F87257CA7C2846027136FF19778BABAC6B0C568021EB2EE5DFDA3C39BC28092D6C3B32E8D33B63ECE893D9C3D423A44200D9DB27100E9B32E7C27E",
	"7EA085CE9B03137AE6E040000200007423D8DAF965DCDC8F3A42CDD82CD31EFFB989FF607CE64D8B34857AB2863E8049C8E2ACA05986ED6CD53A8371CC85011D4E63245131C67607F25A6239B05846B27B79007033A397AB21A65B34308C5358B9D9224AE4A1179DB17713B32C2D423A0C87604F0AF9DADEAFF6DEE1C14E0CAF8A53A3B788DA7E",
	"7EA085CE9B03137AE6E04000030000742BCF7B29B7D2E571FFF8BC97C983A8E06AC7C1F42DC7C5A890E424C655C5688C89F5B347D5D387FF3A3758AFF8D4FD2E6E23BC92B318EB266916AF1E03F4DCB6E159AB468CC47A2734E0A55EB326F3EF3B4583B3138E72D3FDBA36EBCC35C7375BA85E67BBC950ED077EB383F98C711C1464AC2322C17E",
	"7EA085CE9B03137AE6E0400004000074D661A7B9C068C675D043A5A10A63F97A38D18DBF5C0C5E1EE0107BF504893E59B90547922913D4FEBC0D4928C016AB3BBA945E88AF9C0FB04BD057FB9CD8108EDE20F9F5A95A2E6514BF93AE0C8EEAF370399A8DEF0652A477C5C6482B4C99163728ED4061F93BF56E3FBE6EAF0509EE6E0A056B170C7E",
	"7EA04DCE9B03132DF7E0C0000500003C41AE089DA2FCBA2EE3CF472DC8E3B5E6DBBABFC520EDE1F13C5413EC0DA8B0D396D7354B5C7EE82F9CBA125F80B9C9380CF5DD9D4E1648C33501FEF36E0F7E",
)

// LGAuthenticatedUnknownKey holds an L+G push ciphered with authentication under a key that is not known.
var LGAuthenticatedUnknownKey = frames(
	"7EA08BCEFF0313EEE1E6E700E0400001000077DB084C475A6773781FD0820103300006903CEB7BE17548BFD7C36EDF9648937D7C78262BE5FCFEE36B41D061CFF3FA3AE6918BFDC61F956719E29591FCD6D0A198D6CA49CCDD565FD38A5F9A6C8EAC3ABEEE110D2EC4EBB6DC1043D35A8BC87D420E75A23C44F408B7A731F1621F8486F350C3A49D0206B13A7E",
	"7EA08BCEFF0313EEE1E040000200007A48443E986B54C04A4E84AE52ECF1894ACC58675228E2456F9BEDCD227903FE9116505C9002A69AC45EF735409B4D7ECE2D89CD86F65BFBDFE61C943FCEA4CA646C3EECBD8C38BA057BC521DA2C08E59BE8FBB3FE592794D58041AF332DC0ED7A511906EDA5240795819C85396852D79D3AB7B83BC73023F74B5F01FE7E",
	"7EA030CEFF031386F8E0C0000300001F1FFEC727110F74B7EFF41B48F747B6B6A2395B42BD61EA187ED9A0998B814544787E",
)

// ExtendedRegisters holds a push of extended registers on channels 1-4 of 0.x.24.2.1.255.
var ExtendedRegisters = frames(
	"7EA084CEFF0313128BE6E700E04000010000700F0004157A0C07E8060B02100000FF800000020A010A02041200280906000B190900FF0F0212000002041200280906000B190900FF0F01120000020412000109060001600100FF0F02120000020412000109060002600100FF0F02120000020412000109060003600100FF0F02120000EBF57E",
	"7EA086CEFF03139A9DE0400002000075020412000109060004600100FF0F02120000020412000409060001180201FF0F02120000020412000409060002180201FF0F02120000020412000409060003180201FF0F02120000020412000409060004180201FF0F021200000906000B190900FF09083234353231363632090100090100090100C4FD7E",
	"7EA025CEFF0313926AE0C00003000014050000775105000000000500000000050000000087597E",
)

func frames(hexFrames ...string) [][]byte {
	out := make([][]byte, len(hexFrames))
	for i, h := range hexFrames {
		b, err := hex.DecodeString(h)
		if err != nil {
			panic(err)
		}
		out[i] = b
	}
	return out
}

// Join concatenates frames into one stream.
func Join(frames [][]byte) []byte {
	var out []byte
	for _, f := range frames {
		out = append(out, f...)
	}
	return out
}

var x25 = crc16.MakeTable(crc16.CRC16_X_25)

// Frame wraps info into an HDLC I-frame from client 0x01 to server 0x01.
func Frame(info []byte, segmented bool) []byte {
	length := 2 + 1 + 1 + 1 + 2 + len(info) + 2
	format := uint16(0xA000) | uint16(length)
	if segmented {
		format |= 0x0800
	}

	frame := []byte{0x7E, byte(format >> 8), byte(format), 0x03, 0x03, 0x13}
	hcs := crc16.Checksum(frame[1:], x25)
	frame = append(frame, byte(hcs), byte(hcs>>8))
	frame = append(frame, info...)
	fcs := crc16.Checksum(frame[1:], x25)
	return append(frame, byte(fcs), byte(fcs>>8), 0x7E)
}

// Notification builds a data-notification APDU behind an LLC header.
// dateTime is the 12 byte COSEM date-time or nil.
func Notification(dateTime []byte, body []byte) []byte {
	apdu := []byte{0xE6, 0xE7, 0x00, 0x0F, 0x00, 0x00, 0x00, 0x01}
	if dateTime == nil {
		apdu = append(apdu, 0x00)
	} else {
		apdu = append(apdu, byte(len(dateTime)))
		apdu = append(apdu, dateTime...)
	}
	return append(apdu, body...)
}

// DateTime encodes a COSEM date-time with unspecified deviation.
func DateTime(year int, month, day, hour, minute, second byte) []byte {
	return []byte{byte(year >> 8), byte(year), month, day, 0xFF, hour, minute, second, 0x00, 0x80, 0x00, 0x00}
}

// DSMRTelegram holds a DSMR 5 P1 telegram with a valid CRC.
const DSMRTelegram = "/ISK5\\2M550T-1012\r\n" +
	"\r\n" +
	"1-3:0.2.8(50)\r\n" +
	"0-0:1.0.0(210706145818S)\r\n" +
	"0-0:96.1.1(4530303434303037313331363130363137)\r\n" +
	"1-0:1.8.1(001234.567*kWh)\r\n" +
	"1-0:1.8.2(002345.678*kWh)\r\n" +
	"1-0:2.8.1(000012.345*kWh)\r\n" +
	"1-0:2.8.2(000023.456*kWh)\r\n" +
	"0-0:96.14.0(0002)\r\n" +
	"1-0:1.7.0(00.532*kW)\r\n" +
	"1-0:2.7.0(00.000*kW)\r\n" +
	"1-0:32.7.0(231.4*V)\r\n" +
	"1-0:31.7.0(002*A)\r\n" +
	"0-1:24.2.3(210706145500S)(00123.456*m3)\r\n" +
	"!E0A8\r\n"

// SiemensDataset holds a Siemens TD3511 readout framed by STX, ETX and BCC.
const SiemensDataset = "\x02" +
	"0.0.0(110002267)\r\n" +
	"1.8.0(31550.191*kWh)\r\n" +
	"1.8.1(12853.433*kWh)\r\n" +
	"1.8.2(18696.758*kWh)\r\n" +
	"2.8.0(22309.592*kWh)\r\n" +
	"2.8.1(16717.051*kWh)\r\n" +
	"2.8.2(5592.541*kWh)\r\n" +
	"3.8.1(68.340*kvarh)\r\n" +
	"4.8.1(29332.587*kvarh)\r\n" +
	"0.9.1(21:10:29)\r\n" +
	"0.9.2(24-03-21)\r\n" +
	"1.7.0(0.386*kW)\r\n" +
	"2.7.0(0.000*kW)\r\n" +
	"3.7.0(0.000*kvar)\r\n" +
	"4.7.0(0.727*kvar)\r\n" +
	"14.7(49.96*Hz)\r\n" +
	"32.7(238.3*V)\r\n" +
	"52.7(240.2*V)\r\n" +
	"72.7(240.0*V)\r\n" +
	"31.7(1.58*A)\r\n" +
	"51.7(1.50*A)\r\n" +
	"71.7(0.77*A)\r\n" +
	"81.7.4(-80.7*Deg)\r\n" +
	"81.7.15(-33.3*Deg)\r\n" +
	"81.7.26(-74.5*Deg)\r\n" +
	"!\r\n\x03\x10"

// SiemensUnmapped holds a Siemens TD3511 readout without any known register.
const SiemensUnmapped = "\x02" +
	"0.0.0(110002267)\r\n" +
	"13.8.0(31550.191*kWh)\r\n" +
	"13.8.1(12853.433*kWh)\r\n" +
	"0.8.2(18696.758*kWh)\r\n" +
	"0.9.1(21:10:29)\r\n" +
	"0.9.2(24-03-21)\r\n" +
	"!\r\n\x03\x10"
