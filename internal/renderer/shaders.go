package renderer

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// =============================================================
//
//	Shaders
//
// =============================================================
type Shader struct {
	vertexSource   string
	fragmentSource string
	program        uint32
	isCompiled     bool
	uniforms       *UniformCache
}

func InitShader() Shader {
	return Shader{
		vertexSource:   vertexShaderSource,
		fragmentSource: fragmentShaderSource,
	}
}

func (shader *Shader) Compile() error {
	vertex, err := GenShader(shader.vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return err
	}
	fragment, err := GenShader(shader.fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertex)
		return err
	}
	program, err := GenShaderProgram(vertex, fragment)
	if err != nil {
		return err
	}
	shader.program = program
	shader.uniforms = NewUniformCache(program)
	shader.isCompiled = true
	return nil
}

func (shader *Shader) Use() {
	gl.UseProgram(shader.program)
}

func (shader *Shader) Uniforms() *UniformCache {
	return shader.uniforms
}

func (shader *Shader) Delete() {
	if shader.isCompiled {
		gl.DeleteProgram(shader.program)
		shader.isCompiled = false
	}
}

func GenShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	cSources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, cSources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)

		return 0, fmt.Errorf("compiling shader type %d: %s", shaderType, strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

func GenShaderProgram(vertexShader, fragmentShader uint32) (uint32, error) {
	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	gl.DetachShader(program, vertexShader)
	gl.DeleteShader(vertexShader)
	gl.DetachShader(program, fragmentShader)
	gl.DeleteShader(fragmentShader)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)

		return 0, fmt.Errorf("linking program: %s", strings.TrimRight(log, "\x00"))
	}
	return program, nil
}

var vertexShaderSource = `#version 410 core

layout(location = 0) in vec3 inPosition;
layout(location = 1) in vec2 inTexCoord;
layout(location = 2) in vec3 inNormal;

uniform mat4 model;
uniform mat3 normalMatrix;
uniform mat4 viewProjection;

out vec2 fragTexCoord;
out vec3 Normal;
out vec3 FragPos;

void main() {
    vec4 world = model * vec4(inPosition, 1.0);
    FragPos = world.xyz;
    Normal = normalMatrix * inNormal;
    fragTexCoord = inTexCoord;
    gl_Position = viewProjection * world;
}
` + "\x00"

var fragmentShaderSource = `#version 410 core
in vec2 fragTexCoord;
in vec3 Normal;
in vec3 FragPos;

const float PI = 3.14159265359;

uniform vec3 viewPos;

// lights
uniform vec3 ambientLight;
uniform vec3 lightDirection;
uniform vec3 lightColor;

// material
uniform vec4 baseColorFactor;
uniform float metallic;
uniform float roughness;
uniform vec3 emissive;
uniform bool hasBaseColorTexture;
uniform sampler2D baseColorTexture;

// environment
uniform bool hasEnvironment;
uniform vec3 shCoefficients[9];
uniform sampler2D envMap;
uniform float envMaxLod;

// output
uniform int toneMapping;
uniform float exposure;

out vec4 FragColor;

vec3 irradianceSH(vec3 n) {
    return shCoefficients[0] * 0.282095
        + shCoefficients[1] * 0.488603 * n.y
        + shCoefficients[2] * 0.488603 * n.z
        + shCoefficients[3] * 0.488603 * n.x
        + shCoefficients[4] * 1.092548 * n.x * n.y
        + shCoefficients[5] * 1.092548 * n.y * n.z
        + shCoefficients[6] * 0.315392 * (3.0 * n.z * n.z - 1.0)
        + shCoefficients[7] * 1.092548 * n.x * n.z
        + shCoefficients[8] * 0.546274 * (n.x * n.x - n.y * n.y);
}

vec2 directionToUV(vec3 d) {
    float u = atan(d.z, d.x) / (2.0 * PI);
    if (u < 0.0) {
        u += 1.0;
    }
    return vec2(u, acos(clamp(d.y, -1.0, 1.0)) / PI);
}

vec3 acesFilmic(vec3 x) {
    return clamp((x * (2.51 * x + 0.03)) / (x * (2.43 * x + 0.59) + 0.14), 0.0, 1.0);
}

void main() {
    vec4 base = baseColorFactor;
    if (hasBaseColorTexture) {
        base *= texture(baseColorTexture, fragTexCoord);
    }
    vec3 albedo = base.rgb;

    vec3 N = normalize(Normal);
    vec3 V = normalize(viewPos - FragPos);
    vec3 L = normalize(-lightDirection);
    vec3 H = normalize(L + V);

    vec3 diffuseColor = albedo * (1.0 - metallic);
    vec3 F0 = mix(vec3(0.04), albedo, metallic);

    float NdotL = max(dot(N, L), 0.0);
    float NdotV = max(dot(N, V), 0.0);
    float shininess = mix(256.0, 4.0, roughness);
    float spec = pow(max(dot(N, H), 0.0), shininess) * NdotL;

    vec3 color = diffuseColor * (ambientLight + lightColor * NdotL);
    color += F0 * lightColor * spec;

    if (hasEnvironment) {
        vec3 fresnel = F0 + (max(vec3(1.0 - roughness), F0) - F0) * pow(1.0 - NdotV, 5.0);
        vec3 R = reflect(-V, N);
        vec3 reflection = textureLod(envMap, directionToUV(R), roughness * envMaxLod).rgb;
        color += diffuseColor * irradianceSH(N) * (1.0 - fresnel);
        color += reflection * fresnel;
    }
    color += emissive;

    color *= exposure;
    if (toneMapping == 1) {
        color = acesFilmic(color);
    }
    FragColor = vec4(pow(color, vec3(1.0 / 2.2)), base.a);
}
` + "\x00"
